package extract

import (
	"path/filepath"
	"strings"
)

// LanguageRust is the canonical name of the only language with semantic
// analysis.
const LanguageRust = "rust"

// extToLanguage maps file extensions to canonical language names.
var extToLanguage = map[string]string{
	".rs": LanguageRust,
}

// LanguageForFile returns the canonical language name for a file path based
// on its extension. Returns ("", false) if the extension is not recognized.
func LanguageForFile(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extToLanguage[ext]
	return lang, ok
}
