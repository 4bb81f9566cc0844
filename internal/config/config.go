package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrConfig = errors.New("invalid configuration")

// Describes the application whose build is being verified.
//
// The zero value is not usable; start from Default and overlay a file with
// Load. The defaults target Signal-Android, the upstream this workflow was
// built around.
type Target struct {
	// Git URL of the upstream repository.
	Repo string `yaml:"repo"`

	// Prefix prepended to bare version numbers to form a tag (e.g. "v").
	TagPrefix string `yaml:"tag_prefix"`

	// Android application ID, used to locate the app on a device.
	Package string `yaml:"package"`

	// Directory inside the checkout containing the builder image context.
	ImageContext string `yaml:"image_context"`

	// Gradle task that produces the release bundle.
	GradleTask string `yaml:"gradle_task"`

	// Path of the built bundle, relative to the checkout root.
	BundlePath string `yaml:"bundle_path"`

	// Extra KEY=VALUE environment entries for the containerized build.
	BuildEnv []string `yaml:"build_env"`

	// Zip entry names excluded from APK comparison (signing material).
	IgnoreEntries []string `yaml:"ignore_entries"`
}

// Returns the built-in Signal-Android target description.
func Default() Target {
	return Target{
		Repo:         "https://github.com/signalapp/Signal-Android.git",
		TagPrefix:    "v",
		Package:      "org.thoughtcrime.securesms",
		ImageContext: "reproducible-builds",
		GradleTask:   "bundlePlayProdRelease",
		BundlePath:   "app/build/outputs/bundle/playProdRelease/Signal-Android-play-prod-release.aab",
		IgnoreEntries: []string{
			"META-INF/MANIFEST.MF",
			"META-INF/SIGNAL_S.SF",
			"META-INF/SIGNAL_S.RSA",
			"META-INF/BNDLTOOL.SF",
			"META-INF/BNDLTOOL.RSA",
		},
	}
}

// Loads a target description from a YAML file, overlaying the defaults.
//
// Fields absent from the file keep their default values. Unknown fields are
// rejected so typos surface immediately.
func Load(path string) (Target, error) {
	t := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil && !errors.Is(err, io.EOF) {
		return Target{}, fmt.Errorf("%w: %s: %w", ErrConfig, path, err)
	}

	if err := t.validate(); err != nil {
		return Target{}, err
	}
	return t, nil
}

func (t Target) validate() error {
	switch {
	case t.Repo == "":
		return fmt.Errorf("%w: repo must not be empty", ErrConfig)
	case t.Package == "":
		return fmt.Errorf("%w: package must not be empty", ErrConfig)
	case t.GradleTask == "":
		return fmt.Errorf("%w: gradle_task must not be empty", ErrConfig)
	case t.BundlePath == "":
		return fmt.Errorf("%w: bundle_path must not be empty", ErrConfig)
	}
	return nil
}
