package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/scopeworks/kbingest/internal/config"
)

// HTTPStore talks to a Supabase-compatible storage API. Downloads use a
// longer timeout than metadata calls since documents may be large.
type HTTPStore struct {
	baseURL        string
	serviceKey     string
	bucket         string
	metaClient     *http.Client
	downloadClient *http.Client
}

func NewHTTPStore(cfg config.BlobConfig) *HTTPStore {
	return &HTTPStore{
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/") + "/storage/v1",
		serviceKey:     cfg.ServiceKey,
		bucket:         cfg.Bucket,
		metaClient:     &http.Client{Timeout: 15 * time.Second},
		downloadClient: &http.Client{Timeout: cfg.DownloadTimeout},
	}
}

type listRequest struct {
	Prefix string `json:"prefix"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

type listEntry struct {
	Name     string `json:"name"`
	Metadata struct {
		Size int64 `json:"size"`
	} `json:"metadata"`
}

// List walks the prefix recursively. The storage API only returns direct
// children of a prefix, so folder entries are descended into.
func (s *HTTPStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	if err := s.listDir(ctx, strings.TrimSuffix(prefix, "/"), &objects); err != nil {
		return nil, err
	}
	return objects, nil
}

func (s *HTTPStore) listDir(ctx context.Context, dir string, out *[]ObjectInfo) error {
	const pageSize = 1000

	for offset := 0; ; offset += pageSize {
		body, err := json.Marshal(listRequest{Prefix: dir, Limit: pageSize, Offset: offset})
		if err != nil {
			return fmt.Errorf("encode list request: %w", err)
		}

		url := fmt.Sprintf("%s/object/list/%s", s.baseURL, s.bucket)
		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create list request: %w", err)
		}
		s.authorize(req)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.metaClient.Do(req)
		if err != nil {
			return fmt.Errorf("list objects: %w", err)
		}

		var entries []listEntry
		err = decodeOrError(resp, &entries)
		if err != nil {
			return fmt.Errorf("list objects: %w", err)
		}

		for _, e := range entries {
			path := e.Name
			if dir != "" {
				path = dir + "/" + e.Name
			}
			// Folder entries come back without size metadata.
			if e.Metadata.Size == 0 && !strings.Contains(e.Name, ".") {
				if err := s.listDir(ctx, path, out); err != nil {
					return err
				}
				continue
			}
			*out = append(*out, ObjectInfo{Path: path, Size: e.Metadata.Size})
		}

		if len(entries) < pageSize {
			return nil
		}
	}
}

func (s *HTTPStore) Get(ctx context.Context, path string) ([]byte, error) {
	url := fmt.Sprintf("%s/object/%s/%s", s.baseURL, s.bucket, path)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}
	s.authorize(req)

	resp, err := s.downloadClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("download %s failed (%d)", path, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read object body: %w", err)
	}
	return data, nil
}

func (s *HTTPStore) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	url := fmt.Sprintf("%s/object/%s/%s", s.baseURL, s.bucket, path)

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, data); err != nil {
		return fmt.Errorf("read upload data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, buf)
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	s.authorize(req)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := s.downloadClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed (%d): %s", resp.StatusCode, string(body))
	}
	return nil
}

func (s *HTTPStore) Delete(ctx context.Context, path string) error {
	url := fmt.Sprintf("%s/object/%s/%s", s.baseURL, s.bucket, path)
	req, err := http.NewRequestWithContext(ctx, "DELETE", url, nil)
	if err != nil {
		return fmt.Errorf("create delete request: %w", err)
	}
	s.authorize(req)

	resp, err := s.metaClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("delete %s failed (%d)", path, resp.StatusCode)
	}
	return nil
}

func (s *HTTPStore) DeletePrefix(ctx context.Context, prefix string) ([]string, error) {
	objects, err := s.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list prefix for delete: %w", err)
	}

	var deleted []string
	for _, obj := range objects {
		if err := s.Delete(ctx, obj.Path); err != nil {
			return deleted, err
		}
		deleted = append(deleted, obj.Path)
	}
	return deleted, nil
}

func (s *HTTPStore) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
}

func decodeOrError(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
