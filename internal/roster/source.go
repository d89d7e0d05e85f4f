package roster

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/couchcryptid/rescue-triage-service/internal/domain"
)

// Source produces the raw bytes of a JSON array of records.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]byte, error)
}

// BlobGetter downloads a named object from a bucket.
type BlobGetter interface {
	GetObject(ctx context.Context, name string) ([]byte, error)
}

// FileSource reads a JSON array from the local filesystem.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return "file:" + s.Path }

func (s FileSource) Fetch(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read roster file: %w", err)
	}
	return data, nil
}

// BlobSource fetches a named object through a BlobGetter.
type BlobSource struct {
	Store  BlobGetter
	Object string
}

func (s BlobSource) Name() string { return "blob:" + s.Object }

func (s BlobSource) Fetch(ctx context.Context) ([]byte, error) {
	data, err := s.Store.GetObject(ctx, s.Object)
	if err != nil {
		return nil, fmt.Errorf("fetch blob %q: %w", s.Object, err)
	}
	return data, nil
}

// SyntheticSource generates a demo roster around Center. A nil Rand uses a
// fresh source for each fetch.
type SyntheticSource struct {
	Count  int
	Center domain.Coordinates
	Rand   *rand.Rand
}

func (s SyntheticSource) Name() string { return "synthetic" }

func (s SyntheticSource) Fetch(_ context.Context) ([]byte, error) {
	return encodeRecords(domain.GenerateRoster(s.Count, s.Center, s.Rand))
}
