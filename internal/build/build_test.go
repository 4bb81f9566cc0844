package build

import (
	"testing"

	"github.com/buildproof/reprodroid/internal/apk"
)

func TestResultMatch(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   bool
	}{
		{
			name:   "no reports",
			result: Result{},
			want:   false,
		},
		{
			name: "all pairs match",
			result: Result{Reports: []*apk.Report{
				{Compared: 120},
				{Compared: 4},
			}},
			want: true,
		},
		{
			name: "one pair differs",
			result: Result{Reports: []*apk.Report{
				{Compared: 120},
				{Compared: 4, Differing: []string{"classes.dex"}},
			}},
			want: false,
		},
		{
			name: "unpaired built APK",
			result: Result{
				Reports:       []*apk.Report{{Compared: 120}},
				UnpairedBuilt: []string{"base-xxhdpi.apk"},
			},
			want: false,
		},
		{
			name: "unpaired reference APK",
			result: Result{
				Reports:           []*apk.Report{{Compared: 120}},
				UnpairedReference: []string{"base-arm64_v8a.apk"},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.Match(); got != tt.want {
				t.Fatalf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestImageTag(t *testing.T) {
	if got := imageTag("v7.7.0"); got != "reprodroid/builder:v7.7.0" {
		t.Fatalf("imageTag = %q", got)
	}
}
