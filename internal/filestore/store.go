// Package filestore keeps product downloads in a private directory and
// preview images in a publicly served one.
package filestore

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	productsDir = "products"
	imagePrefix = "/products/"
)

// Store writes under two roots. Private references look like "products/<name>",
// image references like "/products/<name>" (the URL path the public root serves).
type Store struct {
	privateRoot string
	publicRoot  string
}

// New returns a Store. privateRoot holds the "products" dir of downloads,
// publicRoot is the statically served directory.
func New(privateRoot, publicRoot string) *Store {
	return &Store{privateRoot: privateRoot, publicRoot: publicRoot}
}

// PublicRoot is the directory to serve at "/"
func (s *Store) PublicRoot() string {
	return s.publicRoot
}

// SaveFile stores a downloadable file and returns its private reference.
func (s *Store) SaveFile(filename string, r io.Reader) (string, error) {
	ref := path.Join(productsDir, storedName(filename))
	if err := writeFile(filepath.Join(s.privateRoot, ref), r); err != nil {
		return "", errors.Wrapf(err, "save product file %s", filename)
	}
	return ref, nil
}

// SaveImage stores a preview image and returns its URL path.
func (s *Store) SaveImage(filename string, r io.Reader) (string, error) {
	ref := imagePrefix + storedName(filename)
	if err := writeFile(s.imagePath(ref), r); err != nil {
		return "", errors.Wrapf(err, "save product image %s", filename)
	}
	return ref, nil
}

// RemoveFile deletes a private file. A missing file is an error.
func (s *Store) RemoveFile(ref string) error {
	full, err := s.filePath(ref)
	if err != nil {
		return err
	}
	return errors.Wrapf(os.Remove(full), "remove product file %s", ref)
}

// RemoveImage deletes a public image. A missing file is an error.
func (s *Store) RemoveImage(ref string) error {
	if !strings.HasPrefix(ref, imagePrefix) {
		return errors.Errorf("invalid image reference %q", ref)
	}
	return errors.Wrapf(os.Remove(s.imagePath(ref)), "remove product image %s", ref)
}

// OpenFile opens a private file for download.
func (s *Store) OpenFile(ref string) (*os.File, error) {
	full, err := s.filePath(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	return f, errors.Wrapf(err, "open product file %s", ref)
}

// FileExists reports whether a private reference resolves to a stored file.
func (s *Store) FileExists(ref string) bool {
	full, err := s.filePath(ref)
	if err != nil {
		return false
	}
	return exists(full)
}

// ImageExists reports whether an image reference resolves to a stored file.
func (s *Store) ImageExists(ref string) bool {
	return strings.HasPrefix(ref, imagePrefix) && exists(s.imagePath(ref))
}

func (s *Store) filePath(ref string) (string, error) {
	if !strings.HasPrefix(ref, productsDir+"/") {
		return "", errors.Errorf("invalid file reference %q", ref)
	}
	return filepath.Join(s.privateRoot, filepath.FromSlash(path.Clean(ref))), nil
}

func (s *Store) imagePath(ref string) string {
	return filepath.Join(s.publicRoot, filepath.FromSlash(path.Clean(ref)))
}

// storedName is "<uuid>-<base name>"; directory parts of the upload name are dropped.
func storedName(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == ".." {
		base = "upload"
	}
	return uuid.NewString() + "-" + base
}

func writeFile(full string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(full, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return err
	}
	return f.Close()
}

func exists(full string) bool {
	st, err := os.Stat(full)
	return err == nil && !st.IsDir()
}
