package transform

import (
	"path/filepath"
	"strings"

	"flexcss/config"
	"flexcss/state"
)

// buildOutputPath returns output file path for a stylesheet. "src" is the
// source path relative to what was requested on command line (base name for
// a single file), "dst" is the destination directory. Source directory
// structure is kept unless NoDirs is requested, configured suffix goes
// between base name and extension.
func buildOutputPath(src, dst string, env *state.LocalEnv) string {
	return filepath.Join(determineOutputDir(src, dst, env), buildFileName(src, env))
}

func determineOutputDir(src, dst string, env *state.LocalEnv) string {
	if env.NoDirs {
		return dst
	}
	dir := filepath.Dir(src)
	if dir == "." {
		return dst
	}
	segments := strings.Split(filepath.ToSlash(dir), "/")
	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, dst)
	for _, s := range segments {
		switch s {
		case "", ".", "..":
			// never leave destination
			continue
		}
		parts = append(parts, config.CleanFileName(s))
	}
	return filepath.Join(parts...)
}

func buildFileName(src string, env *state.LocalEnv) string {
	name := filepath.Base(src)
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if base == "" {
		// dot file, whole name is base
		base, ext = name, ""
	}
	return config.CleanFileName(base+env.Cfg.Output.Suffix) + ext
}
