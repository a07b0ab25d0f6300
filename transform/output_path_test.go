package transform

import (
	"path/filepath"
	"testing"

	"flexcss/config"
	"flexcss/state"
)

func TestBuildOutputPath(t *testing.T) {
	dst := filepath.FromSlash("/out")

	tests := []struct {
		name   string
		src    string
		suffix string
		noDirs bool
		want   string
	}{
		{"base name", "a.css", "", false, "/out/a.css"},
		{"suffix", "a.css", ".flex", false, "/out/a.flex.css"},
		{"keeps directories", "styles/m/a.css", "", false, "/out/styles/m/a.css"},
		{"no dirs", "styles/m/a.css", "-m", true, "/out/a-m.css"},
		{"no extension", "styles/a", ".flex", false, "/out/styles/a.flex"},
		{"double extension", "a.min.css", ".flex", false, "/out/a.min.flex.css"},
		{"never leaves destination", "../x/a.css", "", false, "/out/x/a.css"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := &state.LocalEnv{
				Cfg:    &config.Config{Output: config.OutputConfig{Suffix: tt.suffix}},
				NoDirs: tt.noDirs,
			}
			got := buildOutputPath(filepath.FromSlash(tt.src), dst, env)
			if want := filepath.FromSlash(tt.want); got != want {
				t.Errorf("buildOutputPath(%q) = %q, want %q", tt.src, got, want)
			}
		})
	}
}
