// ABOUTME: Preview handles for staged files
// ABOUTME: Each handle is a temp file an external viewer can open, removed on release
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/harperreed/leadopp/models"
)

// PreviewHandle references a resource that renders a staged file.
type PreviewHandle struct {
	ID   string
	Path string
}

// PreviewProvider creates and releases preview handles. Every Create must be
// matched by exactly one Release.
type PreviewProvider interface {
	Create(file models.StagedFile) (PreviewHandle, error)
	Release(h PreviewHandle) error
}

// TempFilePreviews writes each staged file to its own temp file under Dir.
type TempFilePreviews struct {
	Dir string
}

// NewTempFilePreviews creates dir if needed.
func NewTempFilePreviews(dir string) (*TempFilePreviews, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "leadopp-previews")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create preview dir: %w", err)
	}
	return &TempFilePreviews{Dir: dir}, nil
}

func (p *TempFilePreviews) Create(file models.StagedFile) (PreviewHandle, error) {
	id := uuid.NewString()
	name := filepath.Base(strings.TrimSpace(file.Name))
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "file"
	}
	path := filepath.Join(p.Dir, id+"-"+name)
	if err := os.WriteFile(path, file.Data, 0600); err != nil {
		return PreviewHandle{}, fmt.Errorf("failed to write preview: %w", err)
	}
	return PreviewHandle{ID: id, Path: path}, nil
}

func (p *TempFilePreviews) Release(h PreviewHandle) error {
	if err := os.Remove(h.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove preview: %w", err)
	}
	return nil
}
