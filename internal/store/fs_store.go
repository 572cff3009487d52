package store

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// NewFSStore 以 basePath 为根目录构建文件型对象存储，整个进程复用一份实例。
// 磁盘布局：
//
//	<basePath>/objects/<key>        # 对象正文
//	<basePath>/meta/<key>.json      # 元数据 sidecar
func NewFSStore(basePath string) (Store, error) {
	if basePath == "" {
		return nil, errors.New("storage path required")
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve storage path: %w", err)
	}

	for _, dir := range []string{filepath.Join(abs, "objects"), filepath.Join(abs, "meta")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage path: %w", err)
		}
	}

	return &fsStore{
		basePath: abs,
		locks:    make(map[string]*entryLock),
	}, nil
}

// fsStore 通过 entryLock 串行化同一 key 的并发写入；不同 key 互不阻塞。
type fsStore struct {
	basePath string

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

// sidecar 是元数据 sidecar 文件的 JSON 结构。
type sidecar struct {
	ContentType  string            `json:"content_type,omitempty"`
	CacheControl string            `json:"cache_control,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	UploadedAt   time.Time         `json:"uploaded_at"`
}

func (s *fsStore) Get(ctx context.Context, key string) (*Object, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	bodyPath, metaPath, err := s.entryPaths(key)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(bodyPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}

	f, err := os.Open(bodyPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	obj := &Object{
		Key:           key,
		Body:          f,
		ContentLength: info.Size(),
		UploadedAt:    info.ModTime().UTC(),
	}
	if meta, err := readSidecar(metaPath); err == nil {
		obj.ContentType = meta.ContentType
		obj.CacheControl = meta.CacheControl
		obj.ETag = meta.ETag
		obj.Metadata = meta.Metadata
		if !meta.UploadedAt.IsZero() {
			obj.UploadedAt = meta.UploadedAt
		}
	}
	return obj, nil
}

func (s *fsStore) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) (*PutResult, error) {
	unlock := s.lockEntry(key)
	defer unlock()

	bodyPath, metaPath, err := s.entryPaths(key)
	if err != nil {
		return nil, err
	}

	for _, p := range []string{bodyPath, metaPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, err
		}
	}

	tempFile, err := os.CreateTemp(filepath.Dir(bodyPath), ".obj-*")
	if err != nil {
		return nil, err
	}
	tempName := tempFile.Name()

	hasher := md5.New()
	_, err = copyWithContext(ctx, io.MultiWriter(tempFile, hasher), body)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return nil, err
	}

	etag := hex.EncodeToString(hasher.Sum(nil))
	uploadedAt := opts.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = time.Now().UTC()
	}
	meta := sidecar{
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
		ETag:         etag,
		Metadata:     opts.Metadata,
		UploadedAt:   uploadedAt,
	}
	if err := writeSidecar(metaPath, meta); err != nil {
		os.Remove(tempName)
		return nil, err
	}

	if err := os.Rename(tempName, bodyPath); err != nil {
		os.Remove(tempName)
		os.Remove(metaPath)
		return nil, err
	}
	if err := os.Chtimes(bodyPath, uploadedAt, uploadedAt); err != nil {
		return nil, err
	}

	return &PutResult{ETag: etag}, nil
}

func (s *fsStore) Delete(ctx context.Context, key string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	unlock := s.lockEntry(key)
	defer unlock()

	bodyPath, metaPath, err := s.entryPaths(key)
	if err != nil {
		return err
	}
	if err := os.Remove(bodyPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Remove(metaPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *fsStore) lockEntry(key string) func() {
	s.mu.Lock()
	lock := s.locks[key]
	if lock == nil {
		lock = &entryLock{}
		s.locks[key] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

// entryPaths 将对象 key 映射为正文与 sidecar 的绝对路径，并防止路径逃逸。
func (s *fsStore) entryPaths(key string) (string, string, error) {
	if key == "" {
		return "", "", errors.New("object key required")
	}

	rel := path.Clean("/" + key)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" || rel == "." {
		return "", "", errors.New("invalid object key")
	}

	bodyPath := filepath.Join(s.basePath, "objects", filepath.FromSlash(rel))
	if !strings.HasPrefix(bodyPath, filepath.Join(s.basePath, "objects")) {
		return "", "", errors.New("invalid object key")
	}
	metaPath := filepath.Join(s.basePath, "meta", filepath.FromSlash(rel)+".json")
	return bodyPath, metaPath, nil
}

func readSidecar(metaPath string) (sidecar, error) {
	var meta sidecar
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return sidecar{}, err
	}
	return meta, nil
}

// writeSidecar 同样走临时文件 + rename，避免读到半写的 JSON。
func writeSidecar(metaPath string, meta sidecar) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	tempFile, err := os.CreateTemp(filepath.Dir(metaPath), ".meta-*")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()
	_, err = tempFile.Write(data)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return err
	}
	if err := os.Rename(tempName, metaPath); err != nil {
		os.Remove(tempName)
		return err
	}
	return nil
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var copied int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, wErr := dst.Write(buf[:n])
			copied += int64(w)
			if wErr != nil {
				return copied, wErr
			}
			if w < n {
				return copied, io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return copied, nil
			}
			return copied, err
		}
	}
}
