// service/httpclient.go
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/MrSnakeDoc/coursemod/internal/utils"
)

var ErrTooLarge = errors.New("response body too large")

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type DefaultHTTPClient struct{ *http.Client }

func NewHTTPClient(timeout time.Duration) *DefaultHTTPClient {
	return &DefaultHTTPClient{Client: &http.Client{Timeout: timeout}}
}

// Download is what DownloadToFile learned about the remote payload.
type Download struct {
	ETag         string
	LastModified string
	Size         int64
}

func get(ctx context.Context, c HTTPClient, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		utils.Try(resp.Body.Close)
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return resp, nil
}

// DownloadToFile streams url into dst. A body longer than maxSize fails with
// ErrTooLarge; maxSize <= 0 means no limit.
func DownloadToFile(ctx context.Context, c HTTPClient, url, dst string, maxSize int64) (Download, error) {
	resp, err := get(ctx, c, url)
	if err != nil {
		return Download{}, err
	}
	defer utils.Try(resp.Body.Close)

	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return Download{}, err
	}
	defer utils.Close(f)

	var src io.Reader = resp.Body
	if maxSize > 0 {
		src = io.LimitReader(resp.Body, maxSize+1)
	}
	n, err := io.Copy(f, src)
	if err != nil {
		return Download{}, err
	}
	if maxSize > 0 && n > maxSize {
		return Download{}, tooLarge(url, maxSize)
	}

	return Download{
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		Size:         n,
	}, nil
}

// FetchBytes reads a whole (small) document into memory, refusing one longer
// than maxSize.
func FetchBytes(ctx context.Context, c HTTPClient, url string, maxSize int64) ([]byte, error) {
	resp, err := get(ctx, c, url)
	if err != nil {
		return nil, err
	}
	defer utils.Try(resp.Body.Close)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, tooLarge(url, maxSize)
	}
	return data, nil
}

func tooLarge(url string, maxSize int64) error {
	return fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, url, maxSize)
}
