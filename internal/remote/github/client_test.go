package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/notefold/notefold/internal/errors"
	"github.com/notefold/notefold/internal/remote"
)

var testWS = remote.Workspace{Owner: "octocat", Repo: "notes", Branch: "main"}

// newTestClient wires a Client against a single httptest server for both
// REST and GraphQL traffic.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-token", nil,
		WithAPIURL(srv.URL),
		WithGraphQLURL(srv.URL+"/graphql"),
		WithHTTPClient(srv.Client()),
	)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		headers map[string]string
		want    errors.ErrorCode
	}{
		{"unauthorized", http.StatusUnauthorized, nil, errors.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, nil, errors.ErrUnauthorized},
		{"rate limited via 403", http.StatusForbidden, map[string]string{"X-RateLimit-Remaining": "0"}, errors.ErrRateLimited},
		{"not found", http.StatusNotFound, nil, errors.ErrNotFound},
		{"conflict", http.StatusConflict, nil, errors.ErrConflict},
		{"sha mismatch as 422", http.StatusUnprocessableEntity, nil, errors.ErrConflict},
		{"too many requests", http.StatusTooManyRequests, nil, errors.ErrRateLimited},
		{"server error", http.StatusInternalServerError, nil, errors.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
			})

			_, err := c.Stat(context.Background(), testWS, "notes/01A.md")
			if errors.CodeOf(err) != tt.want {
				t.Errorf("code = %v, want %v (err: %v)", errors.CodeOf(err), tt.want, err)
			}
		})
	}
}

func TestUpload(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"content": map[string]any{"sha": "new-sha"},
		})
	})

	sha, err := c.Upload(context.Background(), testWS, "notes/01A.md", "hello", "old-sha")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if sha != "new-sha" {
		t.Errorf("sha = %q, want new-sha", sha)
	}
	if gotMethod != http.MethodPut || gotPath != "/repos/octocat/notes/contents/notes/01A.md" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
	if gotBody["sha"] != "old-sha" || gotBody["branch"] != "main" {
		t.Errorf("body = %v", gotBody)
	}
	decoded, _ := base64.StdEncoding.DecodeString(gotBody["content"].(string))
	if string(decoded) != "hello" {
		t.Errorf("content = %q, want hello", decoded)
	}
}

func TestUpload_CreateOmitsSHA(t *testing.T) {
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"content": map[string]any{"sha": "created"},
		})
	})

	if _, err := c.Upload(context.Background(), testWS, "notes/01A.md", "x", ""); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if _, present := gotBody["sha"]; present {
		t.Errorf("create request carried a sha: %v", gotBody)
	}
}

func TestDelete(t *testing.T) {
	var gotMethod string
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{})
	})

	if err := c.Delete(context.Background(), testWS, "trash/01A.md", "sha-x"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if gotMethod != http.MethodDelete || gotBody["sha"] != "sha-x" {
		t.Errorf("request = %s body %v", gotMethod, gotBody)
	}
}

func TestRootFingerprint(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"repository": map[string]any{
					"object": map[string]any{"oid": "head-oid"},
				},
			},
		})
	})

	root, err := c.RootFingerprint(context.Background(), testWS)
	if err != nil {
		t.Fatalf("RootFingerprint failed: %v", err)
	}
	if root != "head-oid" {
		t.Errorf("root = %q, want head-oid", root)
	}
}

func TestRootFingerprint_MissingRepo(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"repository": nil},
		})
	})

	_, err := c.RootFingerprint(context.Background(), testWS)
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("missing repo error = %v, want NOT_FOUND", err)
	}
}

func TestRootFingerprint_EmptyRepo(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"repository": map[string]any{"object": nil},
			},
		})
	})

	root, err := c.RootFingerprint(context.Background(), testWS)
	if err != nil {
		t.Fatalf("empty repo must not error: %v", err)
	}
	if root != "" {
		t.Errorf("root = %q, want empty for a repo with no commits", root)
	}
}

func TestListEntries(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"repository": map[string]any{
					"active": map[string]any{
						"entries": []map[string]any{
							{"name": "01A.md", "oid": "sha-a", "type": "blob"},
							{"name": "assets", "oid": "sha-tree", "type": "tree"},
							{"name": "readme.txt", "oid": "sha-txt", "type": "blob"},
						},
					},
					"trash": map[string]any{
						"entries": []map[string]any{
							{"name": "01B.md", "oid": "sha-b", "type": "blob"},
						},
					},
				},
			},
		})
	})

	entries, err := c.ListEntries(context.Background(), testWS)
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2 (trees and non-.md files skipped)", len(entries))
	}
	if entries[0].ID != "01A" || entries[0].Deleted || entries[0].SHA != "sha-a" {
		t.Errorf("active entry = %+v", entries[0])
	}
	if entries[1].ID != "01B" || !entries[1].Deleted || entries[1].SHA != "sha-b" {
		t.Errorf("trash entry = %+v", entries[1])
	}
}

func TestListEntries_MissingFolders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"repository": map[string]any{"active": nil, "trash": nil},
			},
		})
	})

	entries, err := c.ListEntries(context.Background(), testWS)
	if err != nil {
		t.Fatalf("missing folders must not error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %d, want 0", len(entries))
	}
}

func TestFetchBlobs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"repository": map[string]any{
					"b0": map[string]any{"oid": "sha-1", "text": "one"},
					"b1": map[string]any{"oid": "sha-2", "text": "two"},
				},
			},
		})
	})

	blobs, err := c.FetchBlobs(context.Background(), testWS, []string{"sha-1", "sha-2"})
	if err != nil {
		t.Fatalf("FetchBlobs failed: %v", err)
	}
	if blobs["sha-1"] != "one" || blobs["sha-2"] != "two" {
		t.Errorf("blobs = %v", blobs)
	}
}

func TestFetchBlobs_Empty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected for an empty batch")
	})

	blobs, err := c.FetchBlobs(context.Background(), testWS, nil)
	if err != nil || len(blobs) != 0 {
		t.Errorf("FetchBlobs(nil) = %v, %v", blobs, err)
	}
}

func TestGraphQLErrorTypes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": nil,
			"errors": []map[string]any{
				{"type": "NOT_FOUND", "message": "could not resolve"},
			},
		})
	})

	_, err := c.RootFingerprint(context.Background(), testWS)
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("graphql NOT_FOUND error = %v, want NOT_FOUND", err)
	}
}

func TestEnsureWorkspace_Exists(t *testing.T) {
	var created bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			created = true
		}
		json.NewEncoder(w).Encode(map[string]any{})
	})

	if err := c.EnsureWorkspace(context.Background(), testWS); err != nil {
		t.Fatalf("EnsureWorkspace failed: %v", err)
	}
	if created {
		t.Errorf("existing repository must not be re-created")
	}
}

func TestEnsureWorkspace_Creates(t *testing.T) {
	var createBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPost:
			json.NewDecoder(r.Body).Decode(&createBody)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{})
		}
	})

	if err := c.EnsureWorkspace(context.Background(), testWS); err != nil {
		t.Fatalf("EnsureWorkspace failed: %v", err)
	}
	if createBody["name"] != "notes" || createBody["private"] != true || createBody["auto_init"] != true {
		t.Errorf("create body = %v", createBody)
	}
}

func TestAuthHeader(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{"sha": "x"})
	})

	if _, err := c.Stat(context.Background(), testWS, "notes/01A.md"); err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}
