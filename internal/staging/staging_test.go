package staging

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/fpang/photo-backup/internal/apierr"
)

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestFetch_CreatesDirAndWritesFile(t *testing.T) {
	payload := jpegBytes(t, 8, 6)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "vk_photos")
	area := New(dir, server.Client())

	f, err := area.Fetch(context.Background(), server.URL+"/photo.jpg", "12.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Path != filepath.Join(dir, "12.jpg") {
		t.Errorf("unexpected path %s", f.Path)
	}
	if f.Size != int64(len(payload)) {
		t.Errorf("expected %d bytes, got %d", len(payload), f.Size)
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		t.Fatalf("read staged file: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Error("staged file content mismatch")
	}
}

func TestFetch_OverwritesSameName(t *testing.T) {
	body := "first"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer server.Close()

	area := New(t.TempDir(), server.Client())
	if _, err := area.Fetch(context.Background(), server.URL, "50.jpg"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body = "second"
	f, err := area.Fetch(context.Background(), server.URL, "50.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, _ := os.ReadFile(f.Path)
	if string(data) != "second" {
		t.Errorf("expected overwritten content, got %q", data)
	}
	entries, _ := os.ReadDir(area.Dir())
	if len(entries) != 1 {
		t.Errorf("expected 1 staged file, got %d", len(entries))
	}
}

func TestFetch_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := New(t.TempDir(), server.Client()).Fetch(context.Background(), server.URL, "1.jpg")
	var transportErr *apierr.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if transportErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", transportErr.StatusCode)
	}
}

func TestNew_DefaultDir(t *testing.T) {
	if got := New("", nil).Dir(); got != DefaultDir {
		t.Errorf("expected %s, got %s", DefaultDir, got)
	}
}

func TestInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.jpg")
	if err := os.WriteFile(path, jpegBytes(t, 40, 30), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := Inspect(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Format != "jpeg" || info.Width != 40 || info.Height != 30 {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestInspect_NotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.jpg")
	if err := os.WriteFile(path, []byte("<html>error page</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Inspect(path); err == nil {
		t.Error("expected error for non-image file")
	}
}

func TestLock_SecondHolderIsBusy(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "vk_photos")
	first := New(dir, nil)
	second := New(dir, nil)

	unlock, err := first.Lock()
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := second.Lock(); !errors.Is(err, apierr.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if err := unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	unlock, err = second.Lock()
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	unlock()

	if got := first.LockPath(); got != dir+".lock" {
		t.Errorf("unexpected lock path %q", got)
	}
}
