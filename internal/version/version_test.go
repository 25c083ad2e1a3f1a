package version

import (
	"testing"

	"github.com/fatih/color"
)

func withVersion(t *testing.T, v, commit, date string) {
	t.Helper()
	origVersion, origCommit, origDate, origNoColor := Version, GitCommit, BuildDate, color.NoColor
	Version, GitCommit, BuildDate = v, commit, date
	color.NoColor = true
	t.Cleanup(func() {
		Version, GitCommit, BuildDate, color.NoColor = origVersion, origCommit, origDate, origNoColor
	})
}

func TestColored(t *testing.T) {
	tests := []struct {
		version string
		want    string
	}{
		{"0.3.0-dev", "0.3.0-dev"},
		{"1.2.3", "1.2.3"},
		{"1.2.3-rc.1+build.123", "1.2.3-rc.1+build.123"},
		{"nightly", "nightly"},
		{" 2.0.0 ", "2.0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			withVersion(t, tt.version, "", "")
			if got := Colored(); got != tt.want {
				t.Fatalf("Colored() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestColoredAddsEscapes(t *testing.T) {
	withVersion(t, "1.2.3", "", "")
	color.NoColor = false
	if got := Colored(); got == "1.2.3" {
		t.Fatal("colors expected when NoColor is off")
	}
}

func TestLine(t *testing.T) {
	withVersion(t, "1.0.0", "abc123", "2026-01-15")
	if got := Line(false); got != "attrparse 1.0.0" {
		t.Errorf("Line(false) = %q", got)
	}
	if got := Line(true); got != "attrparse 1.0.0 (abc123) built 2026-01-15" {
		t.Errorf("Line(true) = %q", got)
	}
	GitCommit, BuildDate = "", ""
	if got := Line(true); got != "attrparse 1.0.0" {
		t.Errorf("empty metadata is omitted: %q", got)
	}
}
