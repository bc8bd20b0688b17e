// Package blobstore stores rendered document artifacts. It defines the Store
// interface, an in-memory implementation for tests and development, and an
// S3-compatible implementation.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrBlobNotFound       = errors.New("blob not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
	ErrMissingKey         = errors.New("object key is required")
)

// MaxFileSize is the maximum allowed artifact size in bytes (20 MB).
const MaxFileSize = 20 * 1024 * 1024

// AllowedContentTypes lists the artifact types the service produces.
var AllowedContentTypes = map[string]bool{
	"application/pdf":  true,
	"image/png":        true,
	"application/json": true,
}

// Metadata describes a stored object.
type Metadata struct {
	Key         string            `json:"key"`
	ContentType string            `json:"content_type"`
	Size        int64             `json:"size"`
	Hash        string            `json:"hash"`
	CreatedAt   time.Time         `json:"created_at"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// Store is the contract for artifact storage backends.
type Store interface {
	Put(ctx context.Context, meta Metadata, content io.Reader) (*Metadata, error)
	Get(ctx context.Context, key string) (io.ReadCloser, *Metadata, error)
	Stat(ctx context.Context, key string) (*Metadata, error)
	// PresignGet returns a time-limited download URL for key.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	List(ctx context.Context, prefix string) ([]*Metadata, error)
}

// DocumentKey is the object key for a document's rendered PDF.
func DocumentKey(practitionerID, publicCode string) string {
	return "documents/" + practitionerID + "/" + publicCode + ".pdf"
}

func validate(meta Metadata) error {
	if strings.TrimSpace(meta.Key) == "" {
		return ErrMissingKey
	}
	if !AllowedContentTypes[meta.ContentType] {
		return ErrInvalidContentType
	}
	return nil
}

// readLimited reads content up to MaxFileSize and returns it with its
// SHA-256 hex digest.
func readLimited(content io.Reader) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return nil, "", ErrFileTooLarge
	}
	sum := sha256.Sum256(data)
	return data, hex.EncodeToString(sum[:]), nil
}

type storedBlob struct {
	metadata Metadata
	content  []byte
}

// InMemoryStore is a thread-safe, in-memory Store for testing/dev.
type InMemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]*storedBlob
	// BaseURL prefixes the fake presigned URLs.
	BaseURL string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		blobs:   make(map[string]*storedBlob),
		BaseURL: "memory://",
	}
}

func (s *InMemoryStore) Put(_ context.Context, meta Metadata, content io.Reader) (*Metadata, error) {
	if err := validate(meta); err != nil {
		return nil, err
	}
	data, hash, err := readLimited(content)
	if err != nil {
		return nil, err
	}

	meta.Size = int64(len(data))
	meta.Hash = hash
	meta.CreatedAt = time.Now().UTC()

	s.mu.Lock()
	s.blobs[meta.Key] = &storedBlob{metadata: meta, content: data}
	s.mu.Unlock()

	out := meta
	return &out, nil
}

func (s *InMemoryStore) Get(_ context.Context, key string) (io.ReadCloser, *Metadata, error) {
	s.mu.RLock()
	b, ok := s.blobs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, ErrBlobNotFound
	}
	meta := b.metadata
	return io.NopCloser(bytes.NewReader(b.content)), &meta, nil
}

func (s *InMemoryStore) Stat(_ context.Context, key string) (*Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[key]
	if !ok {
		return nil, ErrBlobNotFound
	}
	meta := b.metadata
	return &meta, nil
}

func (s *InMemoryStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if _, err := s.Stat(ctx, key); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s?expires=%d", s.BaseURL, key, int(ttl.Seconds())), nil
}

func (s *InMemoryStore) List(_ context.Context, prefix string) ([]*Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Metadata
	for k, b := range s.blobs {
		if strings.HasPrefix(k, prefix) {
			meta := b.metadata
			out = append(out, &meta)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
