// Package apierr defines the classified failures a backup run can produce.
//
// Source and destination clients return these types instead of bare
// strings so front ends can match them with errors.As and pick a message:
//
//   - TransportError: network or HTTP-layer failure against any endpoint
//   - ProviderError: the photo source reported an error payload
//   - EmptyResultError: the profile listed zero photos
//   - CredentialInvalidError: the destination rejected its token
//   - FolderCreateError: the destination folder could not be created (non-fatal)
package apierr

import (
	"errors"
	"fmt"
)

// TransportError wraps a connection error, unexpected HTTP status, or an
// unreadable response body from any endpoint.
type TransportError struct {
	Op         string // short operation label, e.g. "photos.get"
	StatusCode int    // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProviderErrorKind categorizes an error payload returned by the photo source.
type ProviderErrorKind int

const (
	// Generic is any provider error without a dedicated kind.
	Generic ProviderErrorKind = iota
	// ProfilePrivate means the profile requires friendship or is closed.
	ProfilePrivate
	// CredentialInvalid means the source access token was rejected.
	CredentialInvalid
	// IdentityInvalid means the owner identity is malformed or unknown.
	IdentityInvalid
)

func (k ProviderErrorKind) String() string {
	switch k {
	case ProfilePrivate:
		return "profile_private"
	case CredentialInvalid:
		return "credential_invalid"
	case IdentityInvalid:
		return "identity_invalid"
	default:
		return "generic"
	}
}

// VK API error codes with a dedicated kind.
const (
	codeAuthorizationFailed = 5
	codeProfilePrivate      = 30
	codeInvalidUserID       = 113
)

const profilePrivateHelp = `the user's profile is private.
To fix this:
1. Make sure you entered the correct user ID
2. Check that the user's profile is open
3. If the profile is closed, you must be friends with the user
4. Check that the access token has permission to read photos (photos scope)
5. Try using your own user ID`

// ProviderError is a classified error payload from the photo source.
type ProviderError struct {
	Kind    ProviderErrorKind
	Code    int
	Message string // provider's error_msg, verbatim
}

// NewProviderError classifies a provider error code.
func NewProviderError(code int, msg string) *ProviderError {
	kind := Generic
	switch code {
	case codeProfilePrivate:
		kind = ProfilePrivate
	case codeAuthorizationFailed:
		kind = CredentialInvalid
	case codeInvalidUserID:
		kind = IdentityInvalid
	}
	return &ProviderError{Kind: kind, Code: code, Message: msg}
}

func (e *ProviderError) Error() string {
	switch e.Kind {
	case ProfilePrivate:
		return profilePrivateHelp
	case CredentialInvalid:
		return "VK authorization failed: check that the access token is correct"
	case IdentityInvalid:
		return "invalid VK user ID: check the ID you entered"
	default:
		return "VK API error: " + e.Message
	}
}

// EmptyResultError is returned when a listing succeeds but holds no photos.
type EmptyResultError struct {
	OwnerID string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("user %s has no photos in the profile album", e.OwnerID)
}

// CredentialInvalidError is returned when the destination rejects its token.
type CredentialInvalidError struct {
	StatusCode int
}

func (e *CredentialInvalidError) Error() string {
	return fmt.Sprintf("Yandex.Disk token rejected (HTTP %d): check that the token is correct", e.StatusCode)
}

// FolderCreateError reports a folder creation failure. Runs log it and continue.
type FolderCreateError struct {
	Path       string
	StatusCode int
	Err        error
}

func (e *FolderCreateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("create folder %q: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("create folder %q: HTTP %d", e.Path, e.StatusCode)
}

func (e *FolderCreateError) Unwrap() error {
	return e.Err
}

// ErrBusy means another run holds the staging area.
var ErrBusy = errors.New("another backup is already running, try again when it finishes")

// Kind returns a short machine-readable label for err, used in logs and metrics.
func Kind(err error) string {
	var (
		transportErr  *TransportError
		providerErr   *ProviderError
		emptyErr      *EmptyResultError
		credentialErr *CredentialInvalidError
		folderErr     *FolderCreateError
	)
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.As(err, &providerErr):
		return providerErr.Kind.String()
	case errors.As(err, &emptyErr):
		return "empty_result"
	case errors.As(err, &credentialErr):
		return "destination_credential_invalid"
	case errors.As(err, &folderErr):
		return "folder_create"
	case errors.As(err, &transportErr):
		return "transport"
	default:
		return "internal"
	}
}

// UserMessage returns the text shown to the person who triggered the run.
// Classified errors speak for themselves; anything else is prefixed so it
// reads as unexpected.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var (
		providerErr   *ProviderError
		emptyErr      *EmptyResultError
		credentialErr *CredentialInvalidError
		transportErr  *TransportError
	)
	switch {
	case errors.Is(err, ErrBusy):
		return ErrBusy.Error()
	case errors.As(err, &providerErr):
		return providerErr.Error()
	case errors.As(err, &emptyErr):
		return emptyErr.Error()
	case errors.As(err, &credentialErr):
		return credentialErr.Error()
	case errors.As(err, &transportErr):
		return "request failed: " + transportErr.Error()
	default:
		return "unexpected error: " + err.Error()
	}
}
