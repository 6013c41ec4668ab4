package renderer

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// Writer writes rendered documents to a filesystem
type Writer struct {
	fs       afero.Fs
	renderer *Renderer
}

// NewWriter creates a writer on fs. Use afero.NewOsFs() for real files.
func NewWriter(fs afero.Fs, r *Renderer) *Writer {
	return &Writer{fs: fs, renderer: r}
}

// Write formats doc and stores it at path, creating parent directories.
// The file is written to a temporary name first and renamed into place.
func (w *Writer) Write(path string, doc Document) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := w.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	tmp := path + ".tmp"
	if err := afero.WriteFile(w.fs, tmp, w.renderer.Format(doc), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := w.fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming %s: %w", tmp, err)
	}
	return nil
}
