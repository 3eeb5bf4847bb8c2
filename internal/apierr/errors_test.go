package apierr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewProviderError_Classification(t *testing.T) {
	cases := map[int]ProviderErrorKind{
		30:  ProfilePrivate,
		5:   CredentialInvalid,
		113: IdentityInvalid,
		18:  Generic,
	}
	for code, want := range cases {
		got := NewProviderError(code, "msg").Kind
		if got != want {
			t.Errorf("code %d: expected %s, got %s", code, want, got)
		}
	}
}

func TestProviderError_ProfilePrivateRemediation(t *testing.T) {
	msg := NewProviderError(30, "This profile is private").Error()
	if !strings.Contains(msg, "friends") {
		t.Errorf("expected friendship guidance, got: %s", msg)
	}
	if !strings.Contains(msg, "token") {
		t.Errorf("expected token scope guidance, got: %s", msg)
	}
}

func TestProviderError_GenericKeepsMessage(t *testing.T) {
	err := NewProviderError(18, "User was deleted or banned")
	if !strings.Contains(err.Error(), "User was deleted or banned") {
		t.Errorf("expected provider message verbatim, got: %s", err.Error())
	}
}

func TestKind_WrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("list photos: %w", NewProviderError(113, "invalid user id"))
	if got := Kind(wrapped); got != "identity_invalid" {
		t.Errorf("expected identity_invalid, got %s", got)
	}

	transport := &TransportError{Op: "upload", StatusCode: 503, Err: errors.New("unavailable")}
	if got := Kind(fmt.Errorf("photo 1: %w", transport)); got != "transport" {
		t.Errorf("expected transport, got %s", got)
	}
	if got := Kind(&CredentialInvalidError{StatusCode: 401}); got != "destination_credential_invalid" {
		t.Errorf("unexpected kind %s", got)
	}
	if got := Kind(errors.New("boom")); got != "internal" {
		t.Errorf("expected internal, got %s", got)
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &TransportError{Op: "photos.get", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("expected TransportError to unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "photos.get") {
		t.Errorf("expected op in message, got %s", err.Error())
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(nil); got != "" {
		t.Errorf("expected empty message for nil, got %q", got)
	}
	if got := UserMessage(&EmptyResultError{OwnerID: "42"}); !strings.Contains(got, "42") {
		t.Errorf("expected owner id in message, got %q", got)
	}
	if got := UserMessage(errors.New("disk full")); !strings.HasPrefix(got, "unexpected error") {
		t.Errorf("expected unexpected-error prefix, got %q", got)
	}
}

func TestKind_Busy(t *testing.T) {
	err := fmt.Errorf("staging area vk_photos: %w", ErrBusy)
	if got := Kind(err); got != "busy" {
		t.Errorf("Kind = %q, want busy", got)
	}
	if got := UserMessage(err); got != ErrBusy.Error() {
		t.Errorf("UserMessage = %q", got)
	}
}
