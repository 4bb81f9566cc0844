// Package striplog normalizes build logs for comparison.
//
// Gradle output is littered with wall-clock noise: task timings, download
// speeds, and dependency-resolution progress bars. Stripping them lets logs
// from two runs of the same build be diffed line by line.
package striplog

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var patterns = []*regexp.Regexp{
	// Task and build timings, e.g. "4m 32.5s" fragments appear as "32.5s".
	regexp.MustCompile(`\d+(\.\d+)?s`),
	// Download speeds, e.g. "(543 kB/s)".
	regexp.MustCompile(`\(\d+ kB/s\)`),
	// Remote repository progress bars, e.g. "[=====     ] 50%".
	regexp.MustCompile(`\[=* *\] \d+%`),
}

// Copies a log from r to w with volatile fragments removed.
//
// Lines beginning with '#' carry a timestamp in their second field (Gradle
// profile markers); the field is dropped when it parses as a number. All
// other lines only have the pattern list applied.
func Strip(w io.Writer, r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		if _, err := fmt.Fprintln(w, StripLine(sc.Text())); err != nil {
			return err
		}
	}
	return sc.Err()
}

// Returns a single log line with volatile fragments removed.
func StripLine(line string) string {
	out := strings.TrimSpace(line)

	if strings.HasPrefix(out, "#") {
		out = dropTimestampField(out)
	}
	for _, p := range patterns {
		out = p.ReplaceAllString(out, "")
	}
	return out
}

// Removes the second whitespace-separated field when it is numeric.
func dropTimestampField(line string) string {
	fields := strings.Split(line, " ")
	if len(fields) < 2 {
		return line
	}
	if !isNumeric(fields[1]) {
		return line
	}
	return strings.Join(append(fields[:1], fields[2:]...), " ")
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	dot := false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' && !dot && i > 0:
			dot = true
		default:
			return false
		}
	}
	return true
}
