package gallery

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/dharsanguruparan/MapPoster/internal/fsutil"
)

var (
	// ErrDraftMissing is returned when the draft directory of a slug does not
	// exist.
	ErrDraftMissing = errors.New("poster directory not found")
	// ErrPublishIO wraps any copy failure during a merge. Files copied before
	// the failure stay in place.
	ErrPublishIO = errors.New("publish failed")
)

// Merger promotes draft run directories into the gallery. Publishes of the
// same slug are serialized; different slugs proceed in parallel.
type Merger struct {
	draft   Layout
	gallery Layout

	locks sync.Map // slug -> *sync.Mutex
}

// NewMerger constructs a Merger between the two areas.
func NewMerger(draft, gallery Layout) *Merger {
	return &Merger{draft: draft, gallery: gallery}
}

// Publish merges the draft directory of slug into the gallery directory of the
// same slug and returns the gallery directory. The draft is never modified.
func (m *Merger) Publish(slug string) (string, error) {
	if !ValidSlug(slug) {
		return "", ErrDraftMissing
	}
	src := m.draft.CityDir(slug)
	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		return "", ErrDraftMissing
	}

	lock, _ := m.locks.LoadOrStore(slug, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	dst := m.gallery.CityDir(slug)
	if err := MergeDir(src, dst); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPublishIO, err)
	}
	return dst, nil
}

// MergeDir copies every entry of src into dst, creating dst when absent.
// Subdirectories are merged recursively; files overwrite same-named
// destination files and keep their modification time. Files that exist only
// in dst are preserved.
func MergeDir(src, dst string) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		from := filepath.Join(src, entry.Name())
		to := filepath.Join(dst, entry.Name())
		// Stat follows symlinks so linked content is copied, not the link.
		info, err := os.Stat(from)
		if err != nil {
			return err
		}
		switch {
		case info.IsDir():
			if err := MergeDir(from, to); err != nil {
				return err
			}
		case info.Mode().IsRegular():
			if err := copyFile(from, to, info); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyFile(from, to string, info fs.FileInfo) error {
	in, err := os.Open(from)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := fsutil.WriteAtomic(to, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	}); err != nil {
		return fmt.Errorf("copy %s: %w", filepath.Base(from), err)
	}
	if err := os.Chmod(to, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(to, info.ModTime(), info.ModTime())
}
