package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Fetcher materializes remote assets as local files so the render engine can
// read them. Local paths pass through untouched.
type Fetcher struct {
	client  *http.Client
	tempDir string
	log     zerolog.Logger

	maxRetries int
	retryDelay time.Duration
}

func NewFetcher(tempDir string, log zerolog.Logger) *Fetcher {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		panic(fmt.Sprintf("failed to create temp dir: %v", err))
	}
	return &Fetcher{
		client:     &http.Client{Timeout: 120 * time.Second},
		tempDir:    tempDir,
		log:        log,
		maxRetries: 3,
		retryDelay: 2 * time.Second,
	}
}

// Fetch returns a local path for the given asset location. The second return
// value reports whether the file is a temporary download the caller owns and
// should remove when done.
func (f *Fetcher) Fetch(ctx context.Context, location string) (string, bool, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		if _, err := os.Stat(location); err != nil {
			return "", false, fmt.Errorf("local asset %s: %w", location, err)
		}
		return location, false, nil
	}

	dest := filepath.Join(f.tempDir, uuid.New().String()+extensionFor(location))

	var lastErr error
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		if attempt > 1 {
			f.log.Warn().Str("url", location).Int("attempt", attempt).
				Err(lastErr).Msg("retrying asset download")
			select {
			case <-ctx.Done():
				return "", false, ctx.Err()
			case <-time.After(f.retryDelay * time.Duration(attempt-1)):
			}
		}
		if err := f.download(ctx, location, dest); err != nil {
			lastErr = err
			continue
		}
		return dest, true, nil
	}
	return "", false, fmt.Errorf("download failed after %d attempts: %w", f.maxRetries, lastErr)
}

func (f *Fetcher) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if n == 0 {
		os.Remove(dest)
		return fmt.Errorf("empty response body")
	}

	f.log.Debug().Str("url", url).Str("path", dest).Int64("bytes", n).Msg("asset downloaded")
	return nil
}

// Cleanup removes temporary files, ignoring paths that are empty or gone.
func (f *Fetcher) Cleanup(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		os.Remove(p)
	}
}

func extensionFor(url string) string {
	base := url
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	if ext := path.Ext(base); ext != "" && len(ext) <= 5 {
		return ext
	}
	return ".bin"
}
