package documents

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gosimple/slug"
)

const (
	storageExt  = ".pdf"
	defaultStem = "document"
)

var nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)

// PathChecker reports whether a storage path is already used by a document.
type PathChecker interface {
	StoragePathExists(ctx context.Context, storagePath string) (bool, error)
}

// Namer derives collision-free storage names from display filenames.
type Namer struct {
	Paths PathChecker
}

// NewNamer builds a Namer backed by paths.
func NewNamer(paths PathChecker) *Namer {
	return &Namer{Paths: paths}
}

// Slugify turns a display filename into a storage-safe name ending in .pdf.
func Slugify(displayName string) string {
	name := strings.TrimSpace(filepath.Base(strings.ReplaceAll(displayName, `\`, "/")))
	if ext := filepath.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	stem := nonSlugRun.ReplaceAllString(slug.Make(name), "-")
	stem = strings.Trim(stem, "-")
	if stem == "" {
		stem = defaultStem
	}
	return stem + storageExt
}

// UniqueName returns the first of name.pdf, name-1.pdf, name-2.pdf, ...
// that no document uses. Every candidate is checked against current state;
// the loop ends only on a free name, a store error or ctx cancellation.
func (n *Namer) UniqueName(ctx context.Context, displayName string) (string, error) {
	candidate := Slugify(displayName)
	stem := strings.TrimSuffix(candidate, storageExt)
	for i := 1; ; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		taken, err := n.Paths.StoragePathExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check storage path %s: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d%s", stem, i, storageExt)
	}
}
