package remote

import (
	"strings"
	"time"
)

// Program mirrors a program record served by a remote endpoint. Content is
// nil until the program has been fetched individually.
type Program struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Extension    string  `json:"extension"`
	Content      *string `json:"content"`
	LastModified int64   `json:"lastModified"`
}

// FullName returns the name with its extension, normalizing a leading dot.
func (p Program) FullName() string {
	if p.Extension == "" {
		return p.Name
	}
	if strings.HasPrefix(p.Extension, ".") {
		return p.Name + p.Extension
	}
	return p.Name + "." + p.Extension
}

// Equal compares identity, name, extension and timestamp. Content is ignored.
func (p Program) Equal(other Program) bool {
	return p.ID == other.ID &&
		p.Name == other.Name &&
		p.Extension == other.Extension &&
		p.LastModified == other.LastModified
}

// HasContent reports whether the content has been populated.
func (p Program) HasContent() bool {
	return p.Content != nil
}

// ContentString returns the content, or "" when it has not been fetched.
func (p Program) ContentString() string {
	if p.Content == nil {
		return ""
	}
	return *p.Content
}

// WithContent returns a copy of p carrying text as its content.
func (p Program) WithContent(text string) Program {
	p.Content = &text
	return p
}

// Clone returns a copy that shares no memory with p.
func (p Program) Clone() Program {
	if p.Content != nil {
		text := *p.Content
		p.Content = &text
	}
	return p
}

// ModifiedAt interprets LastModified as Unix milliseconds.
func (p Program) ModifiedAt() time.Time {
	if p.LastModified <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(p.LastModified)
}

type saveRequest struct {
	Content string `json:"content"`
}
