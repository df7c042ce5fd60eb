// Package artifact stores rendered documents on the local filesystem.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FSStore writes artifacts under a single flat directory. References
// are bare file names; anything path-like is rejected so a reference
// can never escape the directory.
type FSStore struct {
	dir string
}

func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) Put(name string, data []byte) (string, error) {
	if err := validateRef(name); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", name, err)
	}
	return name, nil
}

func (s *FSStore) Get(ref string) ([]byte, error) {
	if err := validateRef(ref); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, ref))
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", ref, err)
	}
	return data, nil
}

func validateRef(ref string) error {
	if ref == "" || strings.ContainsAny(ref, "/\\") || strings.Contains(ref, "..") {
		return fmt.Errorf("invalid artifact reference %q", ref)
	}
	return nil
}
