package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-backup/internal/apierr"
	"github.com/fpang/photo-backup/internal/backup"
	"github.com/fpang/photo-backup/internal/store"
)

func TestFormatDurationShort(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{42 * time.Second, "0:42"},
		{3*time.Minute + 5*time.Second, "3:05"},
		{2*time.Hour + 7*time.Minute + 9*time.Second, "2:07:09"},
	}
	for _, tc := range cases {
		if got := FormatDurationShort(tc.d); got != tc.want {
			t.Errorf("FormatDurationShort(%s) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestPrompter_Ask(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("  42 \n\n"), &out)

	if got := p.Ask("VK user ID", ""); got != "42" {
		t.Errorf("expected trimmed answer, got %q", got)
	}
	if got := p.Ask("Folder", "backup"); got != "backup" {
		t.Errorf("expected default on empty answer, got %q", got)
	}
	if got := p.Ask("Token", "fallback"); got != "fallback" {
		t.Errorf("expected default on EOF, got %q", got)
	}
	if !strings.Contains(out.String(), "Folder [backup]: ") {
		t.Errorf("unexpected prompt output %q", out.String())
	}
}

func TestPrintRecords(t *testing.T) {
	var buf bytes.Buffer
	PrintRecords(&buf, []backup.UploadRecord{
		{FileName: "12.jpg", Size: "x", URL: "https://disk.yandex.ru/client/disk/backup/12.jpg"},
	})
	out := buf.String()
	if !strings.Contains(strings.ToUpper(out), "FILE") {
		t.Errorf("expected header, got %q", out)
	}
	if !strings.Contains(out, "12.jpg") || !strings.Contains(out, "https://disk.yandex.ru/client/disk/backup/12.jpg") {
		t.Errorf("expected record row, got %q", out)
	}
}

func TestPrintRuns(t *testing.T) {
	var buf bytes.Buffer
	PrintRuns(&buf, []*store.Run{{
		ID: "run-1", Status: store.RunStatusError, ErrorKind: "profile_private",
		StartedAt: 1_700_000_000, FinishedAt: 1_700_000_075,
	}})
	out := buf.String()
	if !strings.Contains(out, "run-1") || !strings.Contains(out, "1:15") || !strings.Contains(out, "profile_private") {
		t.Errorf("unexpected table %q", out)
	}
}

var (
	_ Asker = (*Prompter)(nil)
	_ Asker = (*DialogPrompter)(nil)
)

func TestPrompter_AskSecretHasNoDefault(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("y0_token\n"), &out)
	if got := p.AskSecret("Yandex.Disk OAuth token"); got != "y0_token" {
		t.Errorf("unexpected answer %q", got)
	}
	if out.String() != "Yandex.Disk OAuth token: " {
		t.Errorf("unexpected prompt %q", out.String())
	}
}

func TestHandleRunError_LogsAndReturns(t *testing.T) {
	saved := log.Logger
	defer func() { log.Logger = saved }()
	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)

	HandleRunError(&apierr.EmptyResultError{OwnerID: "42"})

	out := buf.String()
	if !strings.Contains(out, `"level":"error"`) || !strings.Contains(out, "No profile photos found") {
		t.Errorf("unexpected log output %q", out)
	}
}
