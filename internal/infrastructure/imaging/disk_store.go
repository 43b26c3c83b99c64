package imaging

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"auction-house/internal/domain"
	"auction-house/pkg/utils"
)

// DiskStore writes processed images under dir; they are served from urlPrefix.
type DiskStore struct {
	dir       string
	urlPrefix string
}

var _ domain.ImageStore = (*DiskStore)(nil)

func NewDiskStore(dir, urlPrefix string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating image dir %s: %w", dir, err)
	}
	return &DiskStore{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

func (s *DiskStore) Save(ctx context.Context, data []byte) (string, error) {
	processed, err := Process(data)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := utils.GenerateID() + ".jpg"
	if err := os.WriteFile(filepath.Join(s.dir, name), processed, 0o644); err != nil {
		return "", fmt.Errorf("writing image %s: %w", name, err)
	}
	return s.urlPrefix + "/" + name, nil
}

func (s *DiskStore) Remove(ctx context.Context, url string) error {
	name, ok := strings.CutPrefix(url, s.urlPrefix+"/")
	if !ok || name == "" || name != filepath.Base(name) {
		return fmt.Errorf("%w: image url %s is not served by this store", domain.ErrValidation, url)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing image %s: %w", name, err)
	}
	return nil
}
