package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"slidecast/common"
	"slidecast/config"
)

// ErrUnsupportedRef is returned for references with an unknown scheme
var ErrUnsupportedRef = errors.New("unsupported asset reference")

// Fetcher resolves asset references (local paths, http(s) URLs, s3://bucket/key)
type Fetcher struct {
	// BaseDir resolves relative local paths
	BaseDir string
	// BaseURL resolves relative references when the manifest came over the wire
	BaseURL string
	S3      *common.S3
	HTTP    *http.Client

	mu    sync.Mutex
	temps []string
}

// NewFetcher creates a fetcher rooted at baseDir
func NewFetcher(baseDir string, s3c *common.S3) *Fetcher {
	return &Fetcher{
		BaseDir: baseDir,
		S3:      s3c,
		HTTP:    &http.Client{Timeout: config.FetchTimeout},
	}
}

func (f *Fetcher) resolve(ref string) string {
	if strings.Contains(ref, "://") {
		return ref
	}
	if f.BaseURL != "" {
		base, err := url.Parse(f.BaseURL)
		if err == nil {
			if rel, err := url.Parse(ref); err == nil {
				return base.ResolveReference(rel).String()
			}
		}
	}
	if f.BaseDir != "" && !filepath.IsAbs(ref) {
		return filepath.Join(f.BaseDir, ref)
	}
	return ref
}

// Open returns a reader for the referenced asset. Caller must Close it.
func (f *Fetcher) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	ref = f.resolve(ref)
	scheme, rest, found := strings.Cut(ref, "://")
	if !found {
		return os.Open(ref)
	}

	switch scheme {
	case "file":
		return os.Open(rest)
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			return nil, err
		}
		resp, err := f.HTTP.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("failed to download %s: status %d", ref, resp.StatusCode)
		}
		return resp.Body, nil
	case "s3":
		if f.S3 == nil {
			return nil, fmt.Errorf("%w: %s (S3 not configured)", ErrUnsupportedRef, ref)
		}
		bucket, key, err := common.ParseLocation(ref)
		if err != nil {
			return nil, err
		}
		return f.S3.Open(ctx, bucket, key)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRef, ref)
	}
}

// Read loads the whole asset into memory
func (f *Fetcher) Read(ctx context.Context, ref string) ([]byte, error) {
	if f == nil {
		f = &Fetcher{}
	}
	rc, err := f.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Local returns a filesystem path for the asset, downloading remote
// references into a temp file removed by Cleanup.
func (f *Fetcher) Local(ctx context.Context, ref string) (string, error) {
	resolved := f.resolve(ref)
	if !strings.Contains(resolved, "://") {
		return resolved, nil
	}
	if p, ok := strings.CutPrefix(resolved, "file://"); ok {
		return p, nil
	}

	rc, err := f.Open(ctx, resolved)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	out, err := os.CreateTemp("", "slidecast-*"+assetExt(resolved))
	if err != nil {
		return "", err
	}
	defer out.Close()

	f.mu.Lock()
	f.temps = append(f.temps, out.Name())
	f.mu.Unlock()

	if _, err := io.Copy(out, rc); err != nil {
		return "", fmt.Errorf("failed to download %s: %w", ref, err)
	}
	return out.Name(), nil
}

// Cleanup removes downloaded temp files
func (f *Fetcher) Cleanup() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.temps {
		os.Remove(p)
	}
	f.temps = nil
}

func assetExt(ref string) string {
	if u, err := url.Parse(ref); err == nil {
		ref = u.Path
	}
	return filepath.Ext(ref)
}
