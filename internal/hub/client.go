package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/kokoro/internal/tts"
	"github.com/dgnsrekt/kokoro/internal/voice"
	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"
)

// DefaultRevision is used when no revision is requested.
const DefaultRevision = "main"

// Options configures a Client.
type Options struct {
	// Endpoint is the hub base URL.
	Endpoint string

	// Token is sent as a bearer token when set.
	Token string

	// CacheRoot is where snapshots are materialized.
	CacheRoot string

	// RequestsPerSecond limits outbound requests. Zero means 4.
	RequestsPerSecond float64

	// Timeout applies to every single request. Zero means 60s.
	Timeout time.Duration

	// Quiet suppresses per-file progress messages.
	Quiet bool

	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// Client implements tts.Repository against the hub HTTP API.
type Client struct {
	endpoint   string
	token      string
	cacheRoot  string
	quiet      bool
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ tts.Repository = (*Client)(nil)

// NewClient creates a hub client.
func NewClient(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		endpoint:   strings.TrimRight(opts.Endpoint, "/"),
		token:      opts.Token,
		cacheRoot:  opts.CacheRoot,
		quiet:      opts.Quiet,
		httpClient: hc,
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
	}
}

// CacheRoot returns the directory snapshots are materialized under.
func (c *Client) CacheRoot() string {
	return c.cacheRoot
}

type repoInfo struct {
	SHA      string `json:"sha"`
	Siblings []struct {
		RFilename string `json:"rfilename"`
	} `json:"siblings"`
}

func (i repoInfo) files() tts.FileSet {
	s := make(tts.FileSet, len(i.Siblings))
	for _, sib := range i.Siblings {
		s[sib.RFilename] = struct{}{}
	}
	return s
}

// ListFiles returns every file path of repoID at revision.
func (c *Client) ListFiles(ctx context.Context, repoID, revision string) (tts.FileSet, error) {
	info, err := c.info(ctx, repoID, revision)
	if err != nil {
		return nil, tts.Upstream(tts.StageList, err).WithContext("repo", repoID)
	}
	return info.files(), nil
}

// Materialize downloads the files of repoID matching any pattern into
// <cacheRoot>/models--<org>--<repo>/snapshots/<sha>/ and records the
// revision under refs/. Files already on disk are kept. A nil patterns
// slice selects every file.
func (c *Client) Materialize(ctx context.Context, repoID, revision string, patterns []string) (string, error) {
	if revision == "" {
		revision = DefaultRevision
	}
	if !filepath.IsLocal(filepath.FromSlash(revision)) {
		return "", tts.NewError(tts.ErrorCodeInvalidInput, fmt.Sprintf("revision %q is not a valid ref name", revision), nil)
	}

	info, err := c.info(ctx, repoID, revision)
	if err != nil {
		return "", tts.Upstream(tts.StageMaterialize, err).WithContext("repo", repoID)
	}
	if info.SHA == "" {
		return "", tts.Upstream(tts.StageMaterialize, errors.New("hub returned no commit sha")).
			WithContext("repo", repoID)
	}
	if !filepath.IsLocal(info.SHA) || strings.ContainsAny(info.SHA, `/\`) {
		return "", tts.Upstream(tts.StageMaterialize, fmt.Errorf("hub returned invalid commit sha %q", info.SHA)).
			WithContext("repo", repoID)
	}

	repoDir := filepath.Join(c.cacheRoot, voice.RepoFolder(repoID))
	snapshot := filepath.Join(repoDir, "snapshots", info.SHA)

	var fetched, kept int
	for _, f := range info.files().Sorted() {
		if patterns != nil && !matchAny(patterns, f) {
			continue
		}
		if !filepath.IsLocal(filepath.FromSlash(f)) {
			return "", tts.Upstream(tts.StageMaterialize, fmt.Errorf("hub listed unsafe path %q", f)).
				WithContext("repo", repoID)
		}

		dst := filepath.Join(snapshot, filepath.FromSlash(f))
		if _, err := os.Stat(dst); err == nil {
			kept++
			continue
		}

		if err := c.download(ctx, repoID, info.SHA, f, dst); err != nil {
			return "", err
		}
		fetched++
	}

	if revision != info.SHA {
		if err := writeRef(repoDir, revision, info.SHA); err != nil {
			return "", err
		}
	}

	log.Debug("Snapshot materialized",
		"repo", repoID,
		"revision", revision,
		"sha", info.SHA,
		"fetched", fetched,
		"cached", kept)

	return snapshot, nil
}

func (c *Client) info(ctx context.Context, repoID, revision string) (repoInfo, error) {
	if revision == "" {
		revision = DefaultRevision
	}

	u := fmt.Sprintf("%s/api/models/%s/revision/%s", c.endpoint, repoID, url.PathEscape(revision))
	resp, err := c.get(ctx, u)
	if err != nil {
		return repoInfo{}, err
	}
	defer resp.Body.Close() //nolint:errcheck

	var info repoInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return repoInfo{}, fmt.Errorf("unable to decode repository info: %w", err)
	}
	return info, nil
}

func (c *Client) download(ctx context.Context, repoID, sha, file, dst string) error {
	u := fmt.Sprintf("%s/%s/resolve/%s/%s", c.endpoint, repoID, sha, escapePath(file))
	resp, err := c.get(ctx, u)
	if err != nil {
		return tts.Upstream(tts.StageMaterialize, err).
			WithContext("repo", repoID).
			WithContext("path", file)
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return tts.IOFailure(filepath.Dir(dst), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".incomplete-*")
	if err != nil {
		return tts.IOFailure(filepath.Dir(dst), err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return tts.Upstream(tts.StageMaterialize, fmt.Errorf("unable to fetch %s: %w", file, err)).
			WithContext("repo", repoID)
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		return tts.IOFailure(dst, err)
	}

	if !c.quiet {
		log.Info("Downloaded", "file", file, "size", humanize.Bytes(uint64(n))) //nolint:gosec
	}
	return nil
}

func (c *Client) get(ctx context.Context, u string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %w", err)
	}
	req.Header.Set("User-Agent", "kokoro-go")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%s: HTTP status %d: %s", u, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

func writeRef(repoDir, revision, sha string) error {
	if !filepath.IsLocal(filepath.FromSlash(revision)) {
		return tts.NewError(tts.ErrorCodeInvalidInput, fmt.Sprintf("revision %q is not a valid ref name", revision), nil)
	}
	ref := filepath.Join(repoDir, "refs", filepath.FromSlash(revision))
	if err := os.MkdirAll(filepath.Dir(ref), 0o755); err != nil {
		return tts.IOFailure(filepath.Dir(ref), err)
	}
	if err := os.WriteFile(ref, []byte(sha), 0o644); err != nil { //nolint:gosec
		return tts.IOFailure(ref, err)
	}
	return nil
}

// matchAny reports whether file matches one of the glob patterns.
func matchAny(patterns []string, file string) bool {
	for _, p := range patterns {
		if ok, err := path.Match(p, file); err == nil && ok {
			return true
		}
	}
	return false
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
