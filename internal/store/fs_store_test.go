package store

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFSStorePutAndGet(t *testing.T) {
	s := newTestStore(t)
	key := "images/logo.png"

	uploadedAt := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	payload := []byte("payload")
	result, err := s.Put(context.Background(), key, bytes.NewReader(payload), PutOptions{
		ContentType:  "image/png",
		CacheControl: "public, max-age=60",
		Metadata:     map[string]string{"source": "uploaded"},
		UploadedAt:   uploadedAt,
	})
	if err != nil {
		t.Fatalf("put error: %v", err)
	}
	if result.ETag == "" {
		t.Fatalf("expected etag to be computed")
	}

	obj, err := s.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	defer obj.Body.Close()

	body, err := io.ReadAll(obj.Body)
	if err != nil {
		t.Fatalf("read body error: %v", err)
	}
	if string(body) != string(payload) {
		t.Fatalf("payload mismatch: %s", string(body))
	}
	if obj.ContentType != "image/png" {
		t.Fatalf("content type mismatch: %s", obj.ContentType)
	}
	if obj.CacheControl != "public, max-age=60" {
		t.Fatalf("cache control mismatch: %s", obj.CacheControl)
	}
	if obj.ETag != result.ETag {
		t.Fatalf("etag mismatch: %s vs %s", obj.ETag, result.ETag)
	}
	if obj.Metadata["source"] != "uploaded" {
		t.Fatalf("metadata mismatch: %v", obj.Metadata)
	}
	if obj.ContentLength != int64(len(payload)) {
		t.Fatalf("size mismatch: %d", obj.ContentLength)
	}
	if !obj.UploadedAt.Equal(uploadedAt) {
		t.Fatalf("uploadedAt mismatch: expected %v got %v", uploadedAt, obj.UploadedAt)
	}
}

func TestFSStoreGetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "missing/key")
	if err == nil || err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFSStoreDelete(t *testing.T) {
	s := newTestStore(t)
	key := "docs/readme.txt"
	if _, err := s.Put(context.Background(), key, bytes.NewReader([]byte("data")), PutOptions{}); err != nil {
		t.Fatalf("put error: %v", err)
	}
	if err := s.Delete(context.Background(), key); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	if _, err := s.Get(context.Background(), key); err == nil || err != ErrNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestFSStoreDeleteMissingIsNoop(t *testing.T) {
	s := newTestStore(t)
	if err := s.Delete(context.Background(), "never/written"); err != nil {
		t.Fatalf("expected delete of missing key to succeed, got %v", err)
	}
}

func TestFSStorePutIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	key := "data/blob"
	payload := []byte("same bytes")

	var firstETag string
	for i := 0; i < 3; i++ {
		result, err := s.Put(context.Background(), key, bytes.NewReader(payload), PutOptions{ContentType: "application/octet-stream"})
		if err != nil {
			t.Fatalf("put #%d error: %v", i, err)
		}
		if firstETag == "" {
			firstETag = result.ETag
		} else if result.ETag != firstETag {
			t.Fatalf("etag changed for identical body: %s vs %s", result.ETag, firstETag)
		}
	}

	obj, err := s.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	defer obj.Body.Close()
	body, _ := io.ReadAll(obj.Body)
	if string(body) != string(payload) {
		t.Fatalf("payload mismatch after repeated puts: %s", string(body))
	}
}

func TestFSStoreContainsTraversal(t *testing.T) {
	s := newTestStore(t)
	fs := s.(*fsStore)

	// path.Clean collapses the traversal; the write must stay inside the root.
	if _, err := s.Put(context.Background(), "../escape", bytes.NewReader([]byte("x")), PutOptions{}); err != nil {
		t.Fatalf("put error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(fs.basePath, "..", "escape")); err == nil {
		t.Fatalf("traversal escaped the storage root")
	}
	if _, err := os.Stat(filepath.Join(fs.basePath, "objects", "escape")); err != nil {
		t.Fatalf("expected collapsed key inside root: %v", err)
	}
}

func TestFSStoreIgnoresDirectories(t *testing.T) {
	s := newTestStore(t)
	fs, ok := s.(*fsStore)
	if !ok {
		t.Fatalf("unexpected store type %T", s)
	}

	bodyPath, _, err := fs.entryPaths("nested/dir")
	if err != nil {
		t.Fatalf("path error: %v", err)
	}
	if err := os.MkdirAll(bodyPath, 0o755); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}

	if _, err := s.Get(context.Background(), "nested/dir"); err == nil || err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for directory, got %v", err)
	}
}

// newTestStore returns a Store backed by a temporary directory.
func newTestStore(t *testing.T) Store {
	t.Helper()
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}
