// Package marketplace fetches an artifact's upstream `source` leg
// (§4.6) over HTTP: the bytes a github or marketplace origin artifact
// was imported from, refreshed on every sync preview/pull. Local
// artifacts have no upstream fetch and are out of scope here.
package marketplace

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/miethe/skillmeat/internal/errors"
	"github.com/miethe/skillmeat/internal/models"
	"github.com/miethe/skillmeat/internal/resilience"
	"github.com/miethe/skillmeat/internal/syncengine"
)

// Client retries transient upstream failures and trips a per-host
// circuit breaker on sustained failure, so a flaky marketplace or
// GitHub outage can't cascade into stuck syncs.
type Client struct {
	http        *retryablehttp.Client
	breakers    *resilience.CircuitBreakerGroup
	githubAPI   string
	marketplace string
}

// Option overrides a Client's upstream endpoints; tests point these at
// an httptest server instead of the real public APIs.
type Option func(*Client)

func WithGitHubAPI(base string) Option { return func(c *Client) { c.githubAPI = base } }

func WithMarketplaceAPI(base string) Option { return func(c *Client) { c.marketplace = base } }

// New builds a Client against the public GitHub contents API and a
// configurable marketplace registry.
func New(opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 5
	rc.Logger = nil

	c := &Client{
		http:        rc,
		breakers:    resilience.NewCircuitBreakerGroup(resilience.DefaultMarketplaceConfig()),
		githubAPI:   "https://api.github.com",
		marketplace: "https://marketplace.skillmeat.dev",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchTree retrieves artifact.Upstream's current file tree for the
// §4.6 source leg.
func (c *Client) FetchTree(ctx context.Context, artifact *models.Artifact) (syncengine.Tree, error) {
	switch artifact.Origin {
	case models.OriginGitHub:
		return c.fetchGitHub(ctx, artifact.Upstream)
	case models.OriginMarketplace:
		return c.fetchMarketplace(ctx, artifact.Upstream)
	default:
		return syncengine.Tree{}, nil
	}
}

// githubRef is one `owner/repo/path@version` upstream identifier
// (§3's attribute list).
type githubRef struct {
	Owner, Repo, Path, Ref string
}

func parseGitHubUpstream(upstream string) (githubRef, error) {
	repoPath, ref, _ := strings.Cut(upstream, "@")
	parts := strings.SplitN(repoPath, "/", 3)
	if len(parts) < 2 {
		return githubRef{}, errors.Validation(fmt.Sprintf("invalid github upstream %q: expected owner/repo[/path][@ref]", upstream))
	}
	r := githubRef{Owner: parts[0], Repo: parts[1], Ref: ref}
	if len(parts) == 3 {
		r.Path = parts[2]
	}
	return r, nil
}

type githubContentEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	DownloadURL string `json:"download_url"`
}

func (c *Client) fetchGitHub(ctx context.Context, upstream string) (syncengine.Tree, error) {
	ref, err := parseGitHubUpstream(upstream)
	if err != nil {
		return nil, err
	}
	tree := syncengine.Tree{}
	if err := c.walkGitHubDir(ctx, ref, ref.Path, tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// walkGitHubDir recurses the GitHub contents API, keying the tree by
// path relative to the upstream's root directory so it lines up with
// the collection/project legs' relative paths.
func (c *Client) walkGitHubDir(ctx context.Context, ref githubRef, dirPath string, tree syncengine.Tree) error {
	url := fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.githubAPI, ref.Owner, ref.Repo, dirPath)
	if ref.Ref != "" {
		url += "?ref=" + ref.Ref
	}
	body, err := c.getWithBreaker(ctx, "github", url)
	if err != nil {
		return err
	}

	var entries []githubContentEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		var single githubContentEntry
		if sErr := json.Unmarshal(body, &single); sErr != nil {
			return errors.Validation(fmt.Sprintf("unexpected github contents response for %s", dirPath))
		}
		entries = []githubContentEntry{single}
	}

	for _, e := range entries {
		switch e.Type {
		case "dir":
			if err := c.walkGitHubDir(ctx, ref, e.Path, tree); err != nil {
				return err
			}
		case "file":
			content, err := c.getWithBreaker(ctx, "github", e.DownloadURL)
			if err != nil {
				return err
			}
			relPath := strings.TrimPrefix(strings.TrimPrefix(e.Path, ref.Path), "/")
			if relPath == "" {
				relPath = e.Name
			}
			tree[relPath] = content
		}
	}
	return nil
}

type marketplaceManifest struct {
	Files []marketplaceFile `json:"files"`
}

type marketplaceFile struct {
	Path          string `json:"path"`
	ContentBase64 string `json:"content_base64"`
}

func (c *Client) fetchMarketplace(ctx context.Context, upstream string) (syncengine.Tree, error) {
	url := fmt.Sprintf("%s/artifacts/%s", c.marketplace, upstream)
	body, err := c.getWithBreaker(ctx, "marketplace", url)
	if err != nil {
		return nil, err
	}
	var manifest marketplaceManifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		return nil, errors.Validation(fmt.Sprintf("invalid marketplace manifest for %s", upstream))
	}
	tree := make(syncengine.Tree, len(manifest.Files))
	for _, f := range manifest.Files {
		decoded, err := base64.StdEncoding.DecodeString(f.ContentBase64)
		if err != nil {
			return nil, errors.Validation(fmt.Sprintf("invalid base64 content for %s", f.Path))
		}
		tree[f.Path] = decoded
	}
	return tree, nil
}

// getWithBreaker runs one retrying GET under the circuit breaker keyed
// by upstream kind, so a sustained marketplace outage trips
// independently of a sustained GitHub outage.
func (c *Client) getWithBreaker(ctx context.Context, breakerKey, url string) ([]byte, error) {
	result, err := c.breakers.Get(breakerKey).ExecuteContext(ctx, func(ctx context.Context) (interface{}, error) {
		req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/vnd.github.v3+json")
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("status %d fetching %s", resp.StatusCode, url)
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, errors.FilesystemError("marketplace_fetch", url, err)
	}
	body, _ := result.([]byte)
	return body, nil
}
