package voice

import (
	"errors"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/dgnsrekt/kokoro/internal/tts"
)

// RepoFolder returns the cache folder name the hub uses for repoID:
// "hexgrad/Kokoro-82M" becomes "models--hexgrad--Kokoro-82M".
func RepoFolder(repoID string) string {
	return "models--" + strings.ReplaceAll(repoID, "/", "--")
}

// SnapshotsDir returns <cacheRoot>/models--<org>--<repo>/snapshots.
func SnapshotsDir(cacheRoot, repoID string) string {
	return filepath.Join(cacheRoot, RepoFolder(repoID), "snapshots")
}

// ListCached returns the names of every voice materialized under any
// revision of repoID in cacheRoot, merged and sorted. A cache that does not
// exist yet is empty, not an error.
func ListCached(cacheRoot, repoID string) ([]string, error) {
	byRev, err := ListCachedByRevision(cacheRoot, repoID)
	if err != nil {
		return nil, err
	}

	names := make(map[string]struct{})
	for _, voices := range byRev {
		for _, v := range voices {
			names[v] = struct{}{}
		}
	}
	return sortedNames(names), nil
}

// ListCachedByRevision is ListCached keeping track of which snapshot each
// voice was found in. Revisions without a voices directory are omitted.
func ListCachedByRevision(cacheRoot, repoID string) (map[string][]string, error) {
	result := make(map[string][]string)

	snapshots := SnapshotsDir(cacheRoot, repoID)
	revisions, err := readDirIfExists(snapshots)
	if err != nil || revisions == nil {
		return result, err
	}

	for _, rev := range revisions {
		voicesDir := filepath.Join(snapshots, rev.Name(), Dir)
		names, err := ListDir(voicesDir)
		if err != nil {
			return nil, err
		}
		if len(names) > 0 {
			result[rev.Name()] = names
		}
	}
	return result, nil
}

// ListDir returns the sorted voice names of the voice files directly inside
// dir. A missing dir yields an empty result.
func ListDir(dir string) ([]string, error) {
	entries, err := readDirIfExists(dir)
	if err != nil {
		return nil, err
	}

	names := make(map[string]struct{})
	for _, e := range entries {
		if !IsVoiceFile(e.Name()) {
			continue
		}
		if name := NameFromPath(e.Name()); name != "" {
			names[name] = struct{}{}
		}
	}
	return sortedNames(names), nil
}

// FindCached looks for name in every cached revision of repoID, trying
// extensions in priority order within each revision. Revisions are visited
// in lexical order.
func FindCached(cacheRoot, repoID, name string) (Asset, string, error) {
	snapshots := SnapshotsDir(cacheRoot, repoID)
	revisions, err := readDirIfExists(snapshots)
	if err != nil {
		return Asset{}, "", err
	}

	for _, rev := range revisions {
		for _, ext := range Extensions {
			asset := Asset{Name: name, Extension: ext}
			p := filepath.Join(snapshots, rev.Name(), filepath.FromSlash(asset.RepoPath()))
			info, err := os.Stat(p)
			if err == nil && !info.IsDir() {
				return asset, p, nil
			}
			if err != nil && !isAbsent(err) {
				return Asset{}, "", tts.IOFailure(p, err)
			}
		}
	}
	return Asset{}, "", tts.NotFound(name)
}

// readDirIfExists lists dir, sorted by name. It returns nil, nil when dir
// (or any parent) does not exist or is not a directory.
func readDirIfExists(dir string) ([]fs.DirEntry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if isAbsent(err) {
			return nil, nil
		}
		return nil, tts.IOFailure(dir, err)
	}
	if !info.IsDir() {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, tts.IOFailure(dir, err)
	}
	return entries, nil
}

func isAbsent(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

// sortedNames returns the keys of names in order, never nil, so empty
// listings encode as [] rather than null.
func sortedNames(names map[string]struct{}) []string {
	out := slices.Sorted(maps.Keys(names))
	if out == nil {
		out = []string{}
	}
	return out
}
