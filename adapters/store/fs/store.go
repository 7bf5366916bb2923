package storefs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/goliatone/go-chartpdf/report"
)

// Store writes finished documents under a root directory. Each artifact gets a
// "<name>.meta.json" sidecar holding its report.ArtifactMeta.
type Store struct {
	Root string
	// DirMode and FileMode default to 0o755 and 0o644.
	DirMode  os.FileMode
	FileMode os.FileMode
	Now      func() time.Time
}

// NewStore creates a filesystem-backed artifact store.
func NewStore(root string) *Store {
	return &Store{Root: root, Now: time.Now}
}

// Put stores an artifact on disk, replacing any previous artifact at key.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, meta report.ArtifactMeta) (report.ArtifactRef, error) {
	if err := s.check(key); err != nil {
		return report.ArtifactRef{}, err
	}
	if err := ctx.Err(); err != nil {
		return report.ArtifactRef{}, err
	}

	pathOnDisk, err := s.resolvePath(key)
	if err != nil {
		return report.ArtifactRef{}, err
	}

	dir := filepath.Dir(pathOnDisk)
	if err := os.MkdirAll(dir, s.dirMode()); err != nil {
		return report.ArtifactRef{}, err
	}

	size, err := writeAtomic(dir, ".chartpdf-*", pathOnDisk, s.fileMode(), func(w io.Writer) (int64, error) {
		return io.Copy(w, r)
	})
	if err != nil {
		return report.ArtifactRef{}, err
	}

	meta.Size = size
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = s.now()
	}
	if meta.Filename == "" {
		meta.Filename = filepath.Base(pathOnDisk)
	}
	if meta.ContentType == "" {
		meta.ContentType = mime.TypeByExtension(filepath.Ext(pathOnDisk))
	}

	if err := s.writeMeta(pathOnDisk, meta); err != nil {
		return report.ArtifactRef{}, err
	}

	return report.ArtifactRef{Key: key, Meta: meta}, nil
}

// Open reads an artifact from disk.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, report.ArtifactMeta, error) {
	_ = ctx
	if err := s.check(key); err != nil {
		return nil, report.ArtifactMeta{}, err
	}

	pathOnDisk, err := s.resolvePath(key)
	if err != nil {
		return nil, report.ArtifactMeta{}, err
	}

	file, err := os.Open(pathOnDisk)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, report.ArtifactMeta{}, report.NewError(report.KindNotFound, fmt.Sprintf("artifact %q not found", key), err)
		}
		return nil, report.ArtifactMeta{}, err
	}

	meta := s.readMeta(pathOnDisk)
	if meta.ContentType == "" {
		meta.ContentType = mime.TypeByExtension(filepath.Ext(pathOnDisk))
	}
	if meta.Size == 0 {
		if info, err := file.Stat(); err == nil {
			meta.Size = info.Size()
			if meta.CreatedAt.IsZero() {
				meta.CreatedAt = info.ModTime()
			}
		}
	}

	return file, meta, nil
}

// Delete removes an artifact and its sidecar.
func (s *Store) Delete(ctx context.Context, key string) error {
	_ = ctx
	if err := s.check(key); err != nil {
		return err
	}

	pathOnDisk, err := s.resolvePath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(pathOnDisk); err != nil {
		if os.IsNotExist(err) {
			return report.NewError(report.KindNotFound, fmt.Sprintf("artifact %q not found", key), err)
		}
		return report.NewError(report.KindUnexpected, "remove artifact", err)
	}
	if err := os.Remove(metaPath(pathOnDisk)); err != nil && !os.IsNotExist(err) {
		return report.NewError(report.KindUnexpected, "remove artifact metadata", err)
	}
	return nil
}

// Path returns the on-disk location of key.
func (s *Store) Path(key string) (string, error) {
	if err := s.check(key); err != nil {
		return "", err
	}
	return s.resolvePath(key)
}

func (s *Store) check(key string) error {
	if s == nil {
		return report.NewError(report.KindUnexpected, "store is nil", nil)
	}
	if s.Root == "" {
		return report.NewError(report.KindValidation, "store root is required", nil)
	}
	if key == "" {
		return report.NewError(report.KindValidation, "artifact key is required", nil)
	}
	return nil
}

func (s *Store) resolvePath(key string) (string, error) {
	clean := path.Clean("/" + key)
	rel := strings.TrimPrefix(clean, "/")
	if rel == "" || rel == "." {
		return "", report.NewError(report.KindValidation, "invalid artifact key", nil)
	}

	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", err
	}
	target := filepath.Join(root, filepath.FromSlash(rel))
	if !strings.HasPrefix(target, root+string(os.PathSeparator)) && target != root {
		return "", report.NewError(report.KindValidation, "artifact key escapes root", nil)
	}
	return target, nil
}

func (s *Store) writeMeta(pathOnDisk string, meta report.ArtifactMeta) error {
	payload, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = writeAtomic(filepath.Dir(pathOnDisk), ".meta-*", metaPath(pathOnDisk), s.fileMode(), func(w io.Writer) (int64, error) {
		n, err := w.Write(payload)
		return int64(n), err
	})
	return err
}

func (s *Store) readMeta(pathOnDisk string) report.ArtifactMeta {
	data, err := os.ReadFile(metaPath(pathOnDisk))
	if err != nil {
		return report.ArtifactMeta{}
	}
	var meta report.ArtifactMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return report.ArtifactMeta{}
	}
	return meta
}

// writeAtomic writes through a temp file in dir and renames it onto target.
func writeAtomic(dir, pattern, target string, mode os.FileMode, write func(io.Writer) (int64, error)) (int64, error) {
	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	size, err := write(tmp)
	if err != nil {
		return 0, err
	}
	if err := tmp.Chmod(mode); err != nil {
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return 0, err
	}
	return size, nil
}

func (s *Store) dirMode() os.FileMode {
	if s.DirMode == 0 {
		return 0o755
	}
	return s.DirMode
}

func (s *Store) fileMode() os.FileMode {
	if s.FileMode == 0 {
		return 0o644
	}
	return s.FileMode
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func metaPath(pathOnDisk string) string {
	return pathOnDisk + ".meta.json"
}
