package scans

import "context"

// ResultLog appends a completed result to one owner's history. Entries are
// never edited once appended.
type ResultLog interface {
	Append(ctx context.Context, r ScanResult) error
}

// ImageStore port (interface untuk penyimpanan gambar). Put returns a
// reference to the stored copy.
type ImageStore interface {
	Put(ctx context.Context, key string, img Image) (string, error)
}
