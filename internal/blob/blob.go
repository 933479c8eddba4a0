// Package blob resolves profile image references against blob storage.
package blob

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Upload is a one-off location a client may PUT a file to.
// Ref is the opaque reference to store once the upload succeeds.
type Upload struct {
	URL string
	Ref string
}

// Store hands out upload locations and turns references into fetchable URLs.
type Store interface {
	UploadURL(ctx context.Context, ownerID string) (Upload, error)
	ResolveURL(ref string) string
	Owns(ownerID, ref string) bool
}

// Static maps references onto paths under a fixed base URL.
type Static struct {
	base *url.URL
}

// Ensure Static implements Store
var _ Store = (*Static)(nil)

// NewStatic parses baseURL, which must be absolute.
func NewStatic(baseURL string) (*Static, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse blob base URL: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("blob base URL %q is not absolute", baseURL)
	}
	return &Static{base: u}, nil
}

// UploadURL allocates a fresh reference under the owner's prefix.
func (s *Static) UploadURL(ctx context.Context, ownerID string) (Upload, error) {
	if ownerID == "" {
		return Upload{}, fmt.Errorf("owner ID is required")
	}
	ref := ownerPrefix(ownerID) + uuid.New().String()
	return Upload{URL: s.base.JoinPath(ref).String(), Ref: ref}, nil
}

// ResolveURL returns "" for an empty reference.
func (s *Static) ResolveURL(ref string) string {
	if ref == "" {
		return ""
	}
	return s.base.JoinPath(ref).String()
}

// Owns reports whether ref was allocated for ownerID.
func (s *Static) Owns(ownerID, ref string) bool {
	return ownerID != "" && strings.HasPrefix(ref, ownerPrefix(ownerID))
}

func ownerPrefix(ownerID string) string {
	return "profiles/" + url.PathEscape(ownerID) + "/"
}
