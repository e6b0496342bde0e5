package endpoint

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no endpoint matches the requested id or name.
	ErrNotFound = errors.New("endpoint not found")
	// ErrDuplicate is returned when adding an endpoint whose id is already registered.
	ErrDuplicate = errors.New("endpoint already exists")
	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("invalid endpoint")
)

// Endpoint describes a remote server hosting programs. The password is never
// part of the record; it lives in a credential store keyed by ID.
type Endpoint struct {
	ID       string `toml:"id" yaml:"id"`
	Name     string `toml:"name" yaml:"name"`
	URL      string `toml:"url" yaml:"url"`
	Username string `toml:"username,omitempty" yaml:"username,omitempty"`
}

// New builds an endpoint with a freshly generated identity.
func New(name, rawURL, username string) Endpoint {
	return Endpoint{
		ID:       uuid.NewString(),
		Name:     strings.TrimSpace(name),
		URL:      strings.TrimSpace(rawURL),
		Username: strings.TrimSpace(username),
	}
}

// Validate reports whether the endpoint can be persisted and dialed.
func (e Endpoint) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("%w: id is empty", ErrInvalid)
	}
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalid)
	}
	if _, err := ParseURL(e.URL); err != nil {
		return err
	}
	return nil
}

// ParseURL parses an endpoint base URL. Only absolute http and https URLs
// with a host are accepted.
func ParseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: url cannot be empty", ErrInvalid)
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: parse url %q: %v", ErrInvalid, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: url must start with http:// or https://", ErrInvalid)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: url %q has no host", ErrInvalid, raw)
	}
	return u, nil
}

// String returns the display name.
func (e Endpoint) String() string {
	return e.Name
}
