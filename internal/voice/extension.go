// Package voice resolves voice assets against a remote repository listing
// and the local hub cache that mirrors it.
package voice

import (
	"path"
	"strings"
)

// Extension is a recognized voice file suffix.
type Extension string

const (
	ExtPT   Extension = ".pt"
	ExtONNX Extension = ".onnx"
	ExtBin  Extension = ".bin"
)

// Extensions lists the recognized suffixes in resolution priority order.
// The suffixes are mutually exclusive, so at most one can match a filename.
var Extensions = []Extension{ExtPT, ExtONNX, ExtBin}

// Dir is the repository directory holding voice files.
const Dir = "voices"

// Asset is one physical voice file, local or remote.
type Asset struct {
	Name      string
	Extension Extension
}

// Filename returns the asset's base name.
func (a Asset) Filename() string {
	return a.Name + string(a.Extension)
}

// RepoPath returns the asset's repository-relative path.
func (a Asset) RepoPath() string {
	return RepoPath(a.Name, a.Extension)
}

// RepoPath returns "voices/<name><ext>".
func RepoPath(name string, ext Extension) string {
	return Dir + "/" + name + string(ext)
}

// MatchExtension returns the extension filename ends with.
func MatchExtension(filename string) (Extension, bool) {
	for _, ext := range Extensions {
		if strings.HasSuffix(filename, string(ext)) {
			return ext, true
		}
	}
	return "", false
}

// IsVoiceFile reports whether filename carries a voice extension.
func IsVoiceFile(filename string) bool {
	_, ok := MatchExtension(filename)
	return ok
}

// NameFromPath strips the directory and the matched voice extension from p.
// Paths without a voice extension are returned as their base name.
func NameFromPath(p string) string {
	base := path.Base(strings.ReplaceAll(p, `\`, "/"))
	if ext, ok := MatchExtension(base); ok {
		return strings.TrimSuffix(base, string(ext))
	}
	return base
}

// PatternsFor returns the repository paths a single voice may live at, in
// priority order.
func PatternsFor(name string) []string {
	patterns := make([]string, 0, len(Extensions))
	for _, ext := range Extensions {
		patterns = append(patterns, RepoPath(name, ext))
	}
	return patterns
}

// AllPattern matches every file in the voices directory.
const AllPattern = Dir + "/*"
