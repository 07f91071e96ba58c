// Package github adapts the remote.Client interface to the GitHub contents
// API (writes) and GraphQL API (batched reads). The sync engine never
// imports this package directly; it is wired in at startup.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/notefold/notefold/internal/errors"
	"github.com/notefold/notefold/internal/remote"
)

const (
	// DefaultAPIURL is the GitHub REST API base.
	DefaultAPIURL = "https://api.github.com"

	// DefaultGraphQLURL is the GitHub GraphQL endpoint.
	DefaultGraphQLURL = "https://api.github.com/graphql"

	requestTimeout = 30 * time.Second
)

// Client implements remote.Client against GitHub.
type Client struct {
	http       *http.Client
	token      string
	apiURL     string
	graphqlURL string
	log        *slog.Logger
}

// Option tunes a Client.
type Option func(*Client)

// WithAPIURL overrides the REST base URL (tests, GitHub Enterprise).
func WithAPIURL(u string) Option {
	return func(c *Client) { c.apiURL = strings.TrimSuffix(u, "/") }
}

// WithGraphQLURL overrides the GraphQL endpoint.
func WithGraphQLURL(u string) Option {
	return func(c *Client) { c.graphqlURL = u }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient builds a GitHub-backed transport using the given token.
func NewClient(token string, log *slog.Logger, opts ...Option) *Client {
	if log == nil {
		log = slog.Default()
	}
	c := &Client{
		http:       &http.Client{Timeout: requestTimeout},
		token:      token,
		apiURL:     DefaultAPIURL,
		graphqlURL: DefaultGraphQLURL,
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RootFingerprint returns the oid of the branch head commit, which changes
// whenever any file in the repository changes.
func (c *Client) RootFingerprint(ctx context.Context, ws remote.Workspace) (string, error) {
	query := `query($owner: String!, $repo: String!, $expr: String!) {
		repository(owner: $owner, name: $repo) {
			object(expression: $expr) { oid }
		}
	}`
	vars := map[string]any{"owner": ws.Owner, "repo": ws.Repo, "expr": ws.Branch}

	var resp struct {
		Repository *struct {
			Object *struct {
				OID string `json:"oid"`
			} `json:"object"`
		} `json:"repository"`
	}
	if err := c.graphql(ctx, query, vars, &resp); err != nil {
		return "", err
	}
	if resp.Repository == nil {
		return "", errors.NewWorkspaceNotFound(ws.Owner + "/" + ws.Repo)
	}
	if resp.Repository.Object == nil {
		// Empty repository: branch has no commits yet. Fingerprint of
		// nothing is the empty string; the reconciler treats it as an
		// empty tree, which it is.
		return "", nil
	}
	return resp.Repository.Object.OID, nil
}

// ListEntries lists the active and trash folders in one GraphQL round trip.
func (c *Client) ListEntries(ctx context.Context, ws remote.Workspace) ([]remote.Entry, error) {
	query := `query($owner: String!, $repo: String!, $active: String!, $trash: String!) {
		repository(owner: $owner, name: $repo) {
			active: object(expression: $active) {
				... on Tree { entries { name oid type } }
			}
			trash: object(expression: $trash) {
				... on Tree { entries { name oid type } }
			}
		}
	}`
	vars := map[string]any{
		"owner":  ws.Owner,
		"repo":   ws.Repo,
		"active": ws.Branch + ":" + remote.ActiveDir,
		"trash":  ws.Branch + ":" + remote.TrashDir,
	}

	type treeEntry struct {
		Name string `json:"name"`
		OID  string `json:"oid"`
		Type string `json:"type"`
	}
	type tree struct {
		Entries []treeEntry `json:"entries"`
	}
	var resp struct {
		Repository *struct {
			Active *tree `json:"active"`
			Trash  *tree `json:"trash"`
		} `json:"repository"`
	}
	if err := c.graphql(ctx, query, vars, &resp); err != nil {
		return nil, err
	}
	if resp.Repository == nil {
		return nil, errors.NewWorkspaceNotFound(ws.Owner + "/" + ws.Repo)
	}

	var entries []remote.Entry
	appendTree := func(t *tree, dir string, deleted bool) {
		if t == nil {
			return
		}
		for _, e := range t.Entries {
			if e.Type != "blob" {
				continue
			}
			path := dir + "/" + e.Name
			id, entryDeleted, ok := remote.ParsePath(path)
			if !ok {
				continue
			}
			entries = append(entries, remote.Entry{
				ID:      id,
				Path:    path,
				SHA:     e.OID,
				Deleted: entryDeleted,
			})
		}
	}
	appendTree(resp.Repository.Active, remote.ActiveDir, false)
	appendTree(resp.Repository.Trash, remote.TrashDir, true)
	return entries, nil
}

// FetchBlobs resolves blob oids to their text via one aliased GraphQL query.
func (c *Client) FetchBlobs(ctx context.Context, ws remote.Workspace, shas []string) (map[string]string, error) {
	if len(shas) == 0 {
		return map[string]string{}, nil
	}

	var sb strings.Builder
	sb.WriteString(`query($owner: String!, $repo: String!) { repository(owner: $owner, name: $repo) {`)
	for i, sha := range shas {
		fmt.Fprintf(&sb, ` b%d: object(oid: %q) { ... on Blob { oid text } }`, i, sha)
	}
	sb.WriteString(` } }`)
	vars := map[string]any{"owner": ws.Owner, "repo": ws.Repo}

	var resp struct {
		Repository map[string]*struct {
			OID  string `json:"oid"`
			Text string `json:"text"`
		} `json:"repository"`
	}
	if err := c.graphql(ctx, sb.String(), vars, &resp); err != nil {
		return nil, err
	}
	if resp.Repository == nil {
		return nil, errors.NewWorkspaceNotFound(ws.Owner + "/" + ws.Repo)
	}

	blobs := make(map[string]string, len(shas))
	for _, blob := range resp.Repository {
		if blob != nil && blob.OID != "" {
			blobs[blob.OID] = blob.Text
		}
	}
	return blobs, nil
}

// Stat returns the current blob sha of the file at path.
func (c *Client) Stat(ctx context.Context, ws remote.Workspace, path string) (string, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s",
		c.apiURL, ws.Owner, ws.Repo, escapePath(path), url.QueryEscape(ws.Branch))

	var resp struct {
		SHA string `json:"sha"`
	}
	if err := c.rest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return "", err
	}
	return resp.SHA, nil
}

// Upload creates or updates the file at path via the contents API. The
// create/update distinction rides on priorSHA: GitHub rejects a PUT without
// sha for an existing file and a PUT with a stale sha, both of which map to
// CONFLICT.
func (c *Client) Upload(ctx context.Context, ws remote.Workspace, path, content, priorSHA string) (string, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.apiURL, ws.Owner, ws.Repo, escapePath(path))

	body := map[string]any{
		"message": "notefold: update " + path,
		"content": base64.StdEncoding.EncodeToString([]byte(content)),
		"branch":  ws.Branch,
	}
	if priorSHA != "" {
		body["sha"] = priorSHA
	}

	var resp struct {
		Content struct {
			SHA string `json:"sha"`
		} `json:"content"`
	}
	if err := c.rest(ctx, http.MethodPut, endpoint, body, &resp); err != nil {
		return "", err
	}
	return resp.Content.SHA, nil
}

// Delete removes the file at path, expecting it at sha.
func (c *Client) Delete(ctx context.Context, ws remote.Workspace, path, sha string) error {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.apiURL, ws.Owner, ws.Repo, escapePath(path))

	body := map[string]any{
		"message": "notefold: delete " + path,
		"sha":     sha,
		"branch":  ws.Branch,
	}
	return c.rest(ctx, http.MethodDelete, endpoint, body, nil)
}

// EnsureWorkspace creates the backing repository on first use.
func (c *Client) EnsureWorkspace(ctx context.Context, ws remote.Workspace) error {
	endpoint := fmt.Sprintf("%s/repos/%s/%s", c.apiURL, ws.Owner, ws.Repo)
	err := c.rest(ctx, http.MethodGet, endpoint, nil, nil)
	if err == nil {
		return nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return err
	}

	c.log.Info("creating remote repository", "owner", ws.Owner, "repo", ws.Repo)
	body := map[string]any{
		"name":      ws.Repo,
		"private":   true,
		"auto_init": true,
	}
	return c.rest(ctx, http.MethodPost, c.apiURL+"/user/repos", body, nil)
}

// graphql posts one GraphQL document and decodes the data payload into out.
func (c *Client) graphql(ctx context.Context, query string, vars map[string]any, out any) error {
	payload, err := json.Marshal(map[string]any{"query": query, "variables": vars})
	if err != nil {
		return errors.NewInternal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(payload))
	if err != nil {
		return errors.NewInternal(err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.mapStatus(resp)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return errors.NewInternal(err)
	}
	for _, ge := range envelope.Errors {
		switch ge.Type {
		case "NOT_FOUND":
			return errors.NewNotFound(ge.Message)
		case "RATE_LIMITED":
			return errors.NewRateLimited(ge.Message)
		case "FORBIDDEN":
			return errors.NewUnauthorized(ge.Message)
		}
	}
	if len(envelope.Errors) > 0 {
		return errors.NewInternal(fmt.Errorf("graphql: %s", envelope.Errors[0].Message))
	}
	if out != nil && envelope.Data != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return errors.NewInternal(err)
		}
	}
	return nil
}

// rest issues one REST call and decodes the response into out when non-nil.
func (c *Client) rest(ctx context.Context, method, endpoint string, body map[string]any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.NewInternal(err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return errors.NewInternal(err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.mapStatus(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.NewInternal(err)
		}
	}
	return nil
}

// mapStatus converts an HTTP failure into the closed error-code set the
// engine branches on. The body is drained for logging only; decisions ride
// exclusively on status codes and rate-limit headers.
func (c *Client) mapStatus(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	c.log.Debug("remote call failed",
		"status", resp.StatusCode,
		"url", resp.Request.URL.Path,
		"body", string(body))

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return errors.NewUnauthorized("")
	case http.StatusForbidden:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			return errors.NewRateLimited("")
		}
		return errors.NewUnauthorized("remote denied access")
	case http.StatusNotFound:
		return errors.NewNotFound(resp.Request.URL.Path)
	case http.StatusConflict, http.StatusUnprocessableEntity:
		// 409 is an explicit conflict; 422 is how the contents API reports
		// an expected-sha mismatch or a create against an existing path.
		return errors.NewConflict(fmt.Sprintf("remote content changed (HTTP %d)", resp.StatusCode))
	case http.StatusTooManyRequests:
		return errors.NewRateLimited("")
	default:
		return errors.NewInternal(fmt.Errorf("remote returned HTTP %d", resp.StatusCode))
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
}

// escapePath escapes each path segment while keeping separators.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
