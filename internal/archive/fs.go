package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ThiagoRGoveia/apt-trades/internal/models"
)

type FSArchiver struct {
	root string
}

func NewFSArchiver(root string) (*FSArchiver, error) {
	if root == "" {
		root = "./archive"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive root %s: %w", root, err)
	}
	return &FSArchiver{root: root}, nil
}

func (a *FSArchiver) Put(_ context.Context, unit models.Unit, body []byte) error {
	dest := filepath.Join(a.root, filepath.FromSlash(Key(unit)))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create archive dir: %w", err)
	}

	// write then rename so readers never see a half-written page
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".page-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dest, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("failed to move page into %s: %w", dest, err)
	}
	return nil
}
