package voice

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/kokoro/internal/tts"
	"github.com/sahilm/fuzzy"
)

// ResolvePrimary returns the asset a single-voice download fetches: the
// first extension, in priority order, for which voices/<name><ext> is in
// files.
func ResolvePrimary(files tts.FileSet, name string) (Asset, error) {
	for _, ext := range Extensions {
		if files.Has(RepoPath(name, ext)) {
			return Asset{Name: name, Extension: ext}, nil
		}
	}
	return Asset{}, tts.NotFound(name)
}

// ListRemote returns the sorted voice names present in files. A voice
// published under several extensions is listed once.
func ListRemote(files tts.FileSet) []string {
	names := make(map[string]struct{})
	for f := range files {
		rest, ok := strings.CutPrefix(f, Dir+"/")
		if !ok || strings.Contains(rest, "/") || !IsVoiceFile(rest) {
			continue
		}
		if name := NameFromPath(rest); name != "" {
			names[name] = struct{}{}
		}
	}
	return sortedNames(names)
}

// Status is the remote voice set next to what is already cached.
type Status struct {
	Voices     []string `json:"voices" yaml:"voices"`
	Downloaded []string `json:"downloaded" yaml:"downloaded"`
}

// Resolver answers which voice files exist for a repository, locally and
// remotely, and fetches them through the repository client.
type Resolver struct {
	repo      tts.Repository
	cfg       tts.Config
	cacheRoot string
}

// NewResolver creates a resolver. cacheRoot is the hub cache the repository
// client materializes into.
func NewResolver(repo tts.Repository, cfg tts.Config, cacheRoot string) *Resolver {
	return &Resolver{repo: repo, cfg: cfg, cacheRoot: cacheRoot}
}

// Ensure makes sure the primary asset for name is in the local cache and
// returns it with its local path. When the remote listing lacks the voice
// a previously cached copy is used.
func (r *Resolver) Ensure(ctx context.Context, name string) (Asset, string, error) {
	files, err := r.repo.ListFiles(ctx, r.cfg.Repo, r.cfg.Revision)
	if err != nil {
		return Asset{}, "", err
	}

	asset, err := ResolvePrimary(files, name)
	if errors.Is(err, tts.ErrNotFound) {
		cached, p, cerr := FindCached(r.cacheRoot, r.cfg.Repo, name)
		if cerr == nil {
			log.Debug("Voice missing remotely, using cached copy", "voice", name, "path", p)
			return cached, p, nil
		}
		if !errors.Is(cerr, tts.ErrNotFound) {
			return Asset{}, "", cerr
		}
		return Asset{}, "", r.notFound(name, ListRemote(files))
	}
	if err != nil {
		return Asset{}, "", err
	}

	root, err := r.repo.Materialize(ctx, r.cfg.Repo, r.cfg.Revision, []string{asset.RepoPath()})
	if err != nil {
		return Asset{}, "", err
	}

	p := filepath.Join(root, filepath.FromSlash(asset.RepoPath()))
	if !r.cfg.Quiet {
		log.Info("Voice ready", "voice", name, "file", asset.Filename())
	}
	return asset, p, nil
}

// EnsureAll materializes every file in the voices directory and returns the
// voice names now present in the snapshot.
func (r *Resolver) EnsureAll(ctx context.Context) ([]string, error) {
	root, err := r.repo.Materialize(ctx, r.cfg.Repo, r.cfg.Revision, []string{AllPattern})
	if err != nil {
		return nil, err
	}
	return ListDir(filepath.Join(root, Dir))
}

// List fetches the configured voice under every extension, or every voice
// when AllVoices is set, and returns the selected names. In single-voice
// mode the result is the requested voice even if the repository has no file
// for it.
func (r *Resolver) List(ctx context.Context) ([]string, error) {
	if r.cfg.AllVoices {
		return r.EnsureAll(ctx)
	}

	name := r.cfg.Voice
	if name == "" {
		name = tts.DefaultVoice
	}

	root, err := r.repo.Materialize(ctx, r.cfg.Repo, r.cfg.Revision, PatternsFor(name))
	if err != nil {
		return nil, err
	}
	got, err := ListDir(filepath.Join(root, Dir))
	if err != nil {
		return nil, err
	}
	if !slices.Contains(got, name) {
		log.Warn("No file for voice in snapshot", "voice", name, "repo", r.cfg.Repo)
	}
	return []string{name}, nil
}

// Status lists the remote voices and the ones already cached.
func (r *Resolver) Status(ctx context.Context) (Status, error) {
	files, err := r.repo.ListFiles(ctx, r.cfg.Repo, r.cfg.Revision)
	if err != nil {
		return Status{}, err
	}

	cached, err := ListCached(r.cacheRoot, r.cfg.Repo)
	if err != nil {
		return Status{}, err
	}

	return Status{Voices: ListRemote(files), Downloaded: cached}, nil
}

func (r *Resolver) notFound(name string, candidates []string) error {
	err := tts.NotFound(name).WithContext("repo", r.cfg.Repo)
	if s := Suggest(name, candidates); len(s) > 0 {
		err = err.WithContext("suggestions", s)
	}
	return err
}

// Suggest returns up to three candidates that fuzzily match name, best first.
func Suggest(name string, candidates []string) []string {
	matches := fuzzy.Find(name, candidates)
	out := make([]string, 0, 3)
	for _, m := range matches {
		if len(out) == 3 {
			break
		}
		out = append(out, m.Str)
	}
	return out
}
