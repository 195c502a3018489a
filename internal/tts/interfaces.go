package tts

import (
	"context"
	"iter"
)

// Repository is the remote model repository. It never mutates remote state.
type Repository interface {
	// ListFiles returns every repository-relative file path at revision.
	// An empty revision means the default branch.
	ListFiles(ctx context.Context, repoID, revision string) (FileSet, error)

	// Materialize fetches the files matching any of patterns into the local
	// cache and returns the snapshot root they live under. Files that are
	// already present are not fetched again.
	Materialize(ctx context.Context, repoID, revision string, patterns []string) (string, error)
}

// Request describes one synthesis.
type Request struct {
	Text  string
	Voice string
	Lang  string
	Repo  string
}

// Pipeline turns text into a finite, pull-driven sequence of chunks. The
// sequence yields a non-nil error at most once, as its last element.
type Pipeline interface {
	Stream(ctx context.Context, req Request) iter.Seq2[Chunk, error]
}
