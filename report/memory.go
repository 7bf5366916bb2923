package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// StaticSource serves pre-rendered bitmaps by id (test/dev and file-based CLI use).
// It satisfies both ContentSource and PanelRasterizer; the scale is ignored.
type StaticSource struct {
	mu      sync.RWMutex
	bitmaps map[string]Bitmap
}

// NewStaticSource creates a source from an id to bitmap map.
func NewStaticSource(bitmaps map[string]Bitmap) *StaticSource {
	src := &StaticSource{bitmaps: make(map[string]Bitmap, len(bitmaps))}
	for id, bmp := range bitmaps {
		src.bitmaps[id] = bmp
	}
	return src
}

// Add registers or replaces a bitmap.
func (s *StaticSource) Add(id string, bmp Bitmap) {
	s.mu.Lock()
	s.bitmaps[id] = bmp
	s.mu.Unlock()
}

// Locate returns the bitmap for id.
func (s *StaticSource) Locate(ctx context.Context, id string) (Bitmap, error) {
	if err := ctx.Err(); err != nil {
		return Bitmap{}, err
	}
	s.mu.RLock()
	bmp, ok := s.bitmaps[id]
	s.mu.RUnlock()
	if !ok {
		return Bitmap{}, NewError(KindNotFound, fmt.Sprintf("content %q not found", id), nil)
	}
	return bmp, nil
}

// Rasterize returns the bitmap for id as the panel surface.
func (s *StaticSource) Rasterize(ctx context.Context, id string, scale float64) (Bitmap, error) {
	_ = scale
	return s.Locate(ctx, id)
}

// MemoryStore stores artifacts in memory (test/dev only).
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data []byte
	meta ArtifactMeta
}

// NewMemoryStore creates an in-memory artifact store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

// Put stores an artifact.
func (s *MemoryStore) Put(ctx context.Context, key string, r io.Reader, meta ArtifactMeta) (ArtifactRef, error) {
	_ = ctx
	if key == "" {
		return ArtifactRef{}, NewError(KindValidation, "artifact key is required", nil)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return ArtifactRef{}, err
	}
	meta.Size = int64(len(data))
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}

	s.mu.Lock()
	s.objects[key] = memoryObject{data: data, meta: meta}
	s.mu.Unlock()

	return ArtifactRef{Key: key, Meta: meta}, nil
}

// Open reads an artifact.
func (s *MemoryStore) Open(ctx context.Context, key string) (io.ReadCloser, ArtifactMeta, error) {
	_ = ctx
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ArtifactMeta{}, NewError(KindNotFound, fmt.Sprintf("artifact %q not found", key), nil)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.meta, nil
}

// Bytes returns a copy of a stored artifact's content.
func (s *MemoryStore) Bytes(key string) ([]byte, bool) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return append([]byte(nil), obj.data...), true
}

// Keys lists stored keys in sorted order.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.objects))
	for key := range s.objects {
		keys = append(keys, key)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Delete removes an artifact.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return NewError(KindNotFound, fmt.Sprintf("artifact %q not found", key), nil)
	}
	delete(s.objects, key)
	return nil
}
