package config

import (
	"os"
	"strings"
)

const badFileName = "_bad_file_name_"

// CleanFileName removes characters not allowed in a single path element and
// leading dots, so result never becomes hidden or relative.
func CleanFileName(in string) string {
	drop := invalidNameChars + string(os.PathSeparator) + string(os.PathListSeparator)
	out := strings.TrimLeft(strings.Map(func(sym rune) rune {
		if sym == 0 || strings.ContainsRune(drop, sym) {
			return -1
		}
		return sym
	}, in), ".")
	if len(out) == 0 {
		return badFileName
	}
	return out
}
