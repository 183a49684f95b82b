package domain

import (
	"context"
	"io"
)

// Fetcher retrieves the payload for a single download request from the
// upstream data-distribution API. Implementations return the payload as a
// stream; the caller owns closing it.
type Fetcher interface {
	Fetch(ctx context.Context, req *DownloadRequest) (io.ReadCloser, error)
}
