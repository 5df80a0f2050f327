package blobstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopeworks/kbingest/internal/config"
)

// newListServer serves the storage list endpoint from a map of prefix to
// direct children. Folder entries carry null metadata, as the real API does.
func newListServer(t *testing.T, children map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/storage/v1/object/list/kb-bucket", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Prefix string `json:"prefix"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		body, ok := children[req.Prefix]
		if !ok {
			body = "[]"
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

func newTestStore(baseURL string) *HTTPStore {
	return NewHTTPStore(config.BlobConfig{
		BaseURL:         baseURL,
		ServiceKey:      "test-key",
		Bucket:          "kb-bucket",
		DownloadTimeout: 5 * time.Second,
	})
}

func TestListDescendsIntoFolders(t *testing.T) {
	srv := newListServer(t, map[string]string{
		"kb": `[
			{"name": "docs", "metadata": null},
			{"name": "intro.txt", "metadata": {"size": 12}}
		]`,
		"kb/docs": `[
			{"name": "archive", "metadata": null},
			{"name": "pricing.pdf", "metadata": {"size": 2048}}
		]`,
		"kb/docs/archive": `[
			{"name": "rates_2023.txt", "metadata": {"size": 90}}
		]`,
	})
	defer srv.Close()

	objects, err := newTestStore(srv.URL).List(context.Background(), "kb/")
	require.NoError(t, err)

	var paths []string
	for _, obj := range objects {
		paths = append(paths, obj.Path)
	}
	assert.ElementsMatch(t, []string{
		"kb/intro.txt",
		"kb/docs/pricing.pdf",
		"kb/docs/archive/rates_2023.txt",
	}, paths)
}

func TestListEmptyFolder(t *testing.T) {
	srv := newListServer(t, map[string]string{
		"kb": `[{"name": "empty", "metadata": null}]`,
	})
	defer srv.Close()

	objects, err := newTestStore(srv.URL).List(context.Background(), "kb")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestListErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bucket not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestStore(srv.URL).List(context.Background(), "kb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
