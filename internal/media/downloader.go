package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// ErrNotImage is returned when a gallery URL does not serve an image.
var ErrNotImage = errors.New("not an image")

// DownloadResult tracks one downloaded review image.
type DownloadResult struct {
	URL         string        `json:"url"`
	Reviewer    string        `json:"reviewer"`
	LocalPath   string        `json:"local_path"`
	Size        int64         `json:"size"`
	ContentType string        `json:"content_type"`
	Hash        string        `json:"hash"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// Downloader saves customer review images to disk.
type Downloader struct {
	outputDir  string
	client     *http.Client
	maxSize    int64
	concurrent int
	userAgent  string
	logger     *slog.Logger
}

// NewDownloader creates a downloader writing into outputDir.
func NewDownloader(outputDir string, maxSizeMB int64, concurrent int, userAgent string, logger *slog.Logger) *Downloader {
	if concurrent <= 0 {
		concurrent = 4
	}
	return &Downloader{
		outputDir:  outputDir,
		client:     &http.Client{Timeout: 60 * time.Second},
		maxSize:    maxSizeMB * 1024 * 1024,
		concurrent: concurrent,
		userAgent:  userAgent,
		logger:     logger.With("component", "media_downloader"),
	}
}

// DownloadGallery fetches every gallery image with bounded concurrency.
// Results keep the gallery order; a failed image records its error and
// does not stop the rest. Only ctx cancellation returns an error.
func (d *Downloader) DownloadGallery(ctx context.Context, items []types.GalleryItem) ([]DownloadResult, error) {
	if err := os.MkdirAll(d.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}

	results := make([]DownloadResult, len(items))
	seen := make(map[string]int)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrent)

	for i, item := range items {
		results[i] = DownloadResult{URL: item.URL, Reviewer: item.Reviewer}
		if j, dup := seen[item.URL]; dup {
			results[i].Error = fmt.Sprintf("duplicate of image %d", j+1)
			continue
		}
		seen[item.URL] = i

		g.Go(func() error {
			res, err := d.Download(gctx, item.URL)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				d.logger.Warn("image download failed", "url", item.URL, "error", err)
				results[i].Error = err.Error()
				return nil
			}
			res.Reviewer = item.Reviewer
			results[i] = *res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Download fetches one image. The file name is derived from the URL hash
// so re-downloading overwrites instead of duplicating.
func (d *Downloader) Download(ctx context.Context, rawURL string) (*DownloadResult, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: status %d", rawURL, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if mt, _, _ := mime.ParseMediaType(contentType); !strings.HasPrefix(mt, "image/") {
		return nil, fmt.Errorf("%w: %s", ErrNotImage, contentType)
	}
	if d.maxSize > 0 && resp.ContentLength > d.maxSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", resp.ContentLength, d.maxSize)
	}

	localPath := filepath.Join(d.outputDir, filename(rawURL, contentType))
	tmp := localPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	hasher := sha256.New()
	body := io.Reader(resp.Body)
	if d.maxSize > 0 {
		body = io.LimitReader(resp.Body, d.maxSize+1)
	}
	n, err := io.Copy(io.MultiWriter(f, hasher), body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && d.maxSize > 0 && n > d.maxSize {
		err = fmt.Errorf("file too large: more than %d bytes", d.maxSize)
	}
	if err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("write %s: %w", localPath, err)
	}
	if err := os.Rename(tmp, localPath); err != nil {
		os.Remove(tmp)
		return nil, err
	}

	return &DownloadResult{
		URL:         rawURL,
		LocalPath:   localPath,
		Size:        n,
		ContentType: contentType,
		Hash:        hex.EncodeToString(hasher.Sum(nil)),
		Duration:    time.Since(start),
	}, nil
}

func filename(rawURL, contentType string) string {
	sum := sha256.Sum256([]byte(rawURL))
	name := hex.EncodeToString(sum[:8])

	ext := ""
	if u, err := url.Parse(rawURL); err == nil {
		ext = strings.ToLower(path.Ext(u.Path))
	}
	if ext == "" || len(ext) > 5 {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		}
	}
	return name + ext
}
