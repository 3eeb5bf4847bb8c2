package yadisk

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fpang/photo-backup/internal/apierr"
)

// newTestClient creates a Client pointing at a test HTTP server.
func newTestClient(server *httptest.Server) *Client {
	return NewClient("disk-token", WithBaseURL(server.URL+"/v1/disk"), WithHTTPClient(server.Client()))
}

func TestCheckCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/disk" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "OAuth disk-token" {
			t.Errorf("unexpected Authorization header: %q", got)
		}
		w.Write([]byte(`{"total_space":1000,"used_space":10}`))
	}))
	defer server.Close()

	if err := newTestClient(server).CheckCredential(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckCredential_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"UnauthorizedError","description":"Unauthorized"}`))
	}))
	defer server.Close()

	err := newTestClient(server).CheckCredential(context.Background())
	var credErr *apierr.CredentialInvalidError
	if !errors.As(err, &credErr) {
		t.Fatalf("expected CredentialInvalidError, got %v", err)
	}
	if credErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", credErr.StatusCode)
	}
}

func TestCreateFolder_Idempotent(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		if r.URL.Path != "/v1/disk/resources" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("path"); got != "backup" {
			t.Errorf("unexpected path param: %s", got)
		}
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"href":"https://cloud-api.yandex.net/v1/disk/resources?path=disk%3A%2Fbackup"}`))
			return
		}
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"DiskPathPointsToExistentDirectoryError"}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	for i := 0; i < 2; i++ {
		if err := client.CreateFolder(context.Background(), "backup"); err != nil {
			t.Fatalf("call %d: unexpected error: %v", i+1, err)
		}
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestCreateFolder_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInsufficientStorage)
	}))
	defer server.Close()

	err := newTestClient(server).CreateFolder(context.Background(), "backup")
	var folderErr *apierr.FolderCreateError
	if !errors.As(err, &folderErr) {
		t.Fatalf("expected FolderCreateError, got %v", err)
	}
	if folderErr.StatusCode != http.StatusInsufficientStorage {
		t.Errorf("unexpected status %d", folderErr.StatusCode)
	}
}

func TestUploadLinkAndUpload(t *testing.T) {
	var uploaded string
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/v1/disk/resources/upload", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("path") != "backup/12.jpg" {
			t.Errorf("unexpected path param: %s", q.Get("path"))
		}
		if q.Get("overwrite") != "true" {
			t.Errorf("expected overwrite=true, got %s", q.Get("overwrite"))
		}
		w.Write([]byte(`{"href":"` + server.URL + `/target/abc","method":"PUT","templated":false}`))
	})
	mux.HandleFunc("/target/abc", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		data, _ := io.ReadAll(r.Body)
		uploaded = string(data)
		w.WriteHeader(http.StatusCreated)
	})

	client := newTestClient(server)
	href, err := client.UploadLink(context.Background(), "backup/12.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(href, "/target/abc") {
		t.Errorf("unexpected href %s", href)
	}

	payload := "jpeg-bytes"
	if err := client.Upload(context.Background(), href, strings.NewReader(payload), int64(len(payload))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uploaded != payload {
		t.Errorf("expected %q uploaded, got %q", payload, uploaded)
	}
}

func TestUploadLink_Errors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		_, err := newTestClient(server).UploadLink(context.Background(), "1.jpg")
		var transportErr *apierr.TransportError
		if !errors.As(err, &transportErr) {
			t.Fatalf("expected TransportError, got %v", err)
		}
	})

	t.Run("missing href", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		_, err := newTestClient(server).UploadLink(context.Background(), "1.jpg")
		var transportErr *apierr.TransportError
		if !errors.As(err, &transportErr) {
			t.Fatalf("expected TransportError, got %v", err)
		}
	})
}

func TestUpload_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	}))
	defer server.Close()

	err := newTestClient(server).Upload(context.Background(), server.URL+"/target", strings.NewReader("x"), 1)
	var transportErr *apierr.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if transportErr.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("unexpected status %d", transportErr.StatusCode)
	}
}

func TestBrowseURL(t *testing.T) {
	client := NewClient("tok")
	if got := client.BrowseURL("backup/12.jpg"); got != "https://disk.yandex.ru/client/disk/backup/12.jpg" {
		t.Errorf("unexpected browse URL %s", got)
	}
}

func TestWithBaseURL_UploadURLFollows(t *testing.T) {
	c := NewClient("tok", WithBaseURL("http://localhost:1234/v1/disk/"))
	if c.uploadURL != "http://localhost:1234/v1/disk/resources/upload" {
		t.Errorf("unexpected upload URL %s", c.uploadURL)
	}

	c = NewClient("tok", WithUploadURL("http://upload.example/start"), WithBaseURL("http://localhost:1234/v1/disk"))
	if c.uploadURL != "http://upload.example/start" {
		t.Errorf("explicit upload URL overwritten: %s", c.uploadURL)
	}
}
