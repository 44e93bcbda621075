package media

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a.jpg", "/b.png":
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte("fake-image-bytes"))
		case "/big.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write(make([]byte, 2<<20))
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDownload(t *testing.T) {
	srv := imageServer(t)
	dir := t.TempDir()
	d := NewDownloader(dir, 1, 2, "test-agent", testLogger)

	res, err := d.Download(context.Background(), srv.URL+"/a.jpg")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if res.Size != int64(len("fake-image-bytes")) || res.Hash == "" {
		t.Errorf("result = %+v", res)
	}
	if filepath.Dir(res.LocalPath) != dir || !strings.HasSuffix(res.LocalPath, ".jpg") {
		t.Errorf("local path = %s", res.LocalPath)
	}
	data, err := os.ReadFile(res.LocalPath)
	if err != nil || string(data) != "fake-image-bytes" {
		t.Errorf("file = %q, %v", data, err)
	}
}

func TestDownloadRejects(t *testing.T) {
	srv := imageServer(t)
	d := NewDownloader(t.TempDir(), 1, 2, "", testLogger)

	if _, err := d.Download(context.Background(), srv.URL+"/page"); !errors.Is(err, ErrNotImage) {
		t.Errorf("html page: %v", err)
	}
	if _, err := d.Download(context.Background(), srv.URL+"/missing.jpg"); err == nil {
		t.Error("expected 404 error")
	}
	if _, err := d.Download(context.Background(), srv.URL+"/big.jpg"); err == nil {
		t.Error("expected size limit error")
	}
}

func TestDownloadGallery(t *testing.T) {
	srv := imageServer(t)
	d := NewDownloader(t.TempDir(), 1, 2, "", testLogger)

	items := []types.GalleryItem{
		{URL: srv.URL + "/a.jpg", Reviewer: "Ann"},
		{URL: srv.URL + "/missing.jpg", Reviewer: "Bob"},
		{URL: srv.URL + "/b.png", Reviewer: "Cat"},
		{URL: srv.URL + "/a.jpg", Reviewer: "Ann"},
	}
	results, err := d.DownloadGallery(context.Background(), items)
	if err != nil {
		t.Fatalf("DownloadGallery: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("results = %d", len(results))
	}
	if results[0].LocalPath == "" || results[0].Reviewer != "Ann" {
		t.Errorf("first = %+v", results[0])
	}
	if results[1].Error == "" {
		t.Error("missing image should record an error")
	}
	if results[2].LocalPath == "" {
		t.Errorf("third = %+v", results[2])
	}
	if !strings.Contains(results[3].Error, "duplicate") {
		t.Errorf("fourth = %+v", results[3])
	}
}

func TestDownloadGalleryCanceled(t *testing.T) {
	srv := imageServer(t)
	d := NewDownloader(t.TempDir(), 1, 1, "", testLogger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.DownloadGallery(ctx, []types.GalleryItem{{URL: srv.URL + "/a.jpg"}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}
