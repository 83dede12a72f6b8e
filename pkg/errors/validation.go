package errors

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// maxIDLength bounds node and document identifiers accepted from the wire.
const maxIDLength = 128

// ValidateID rejects node and document identifiers that are empty, longer
// than 128 bytes, or contain whitespace, control characters or path
// separators. Identifiers end up in URLs and storage keys.
func ValidateID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "identifier cannot be empty")
	}

	if len(id) > maxIDLength {
		return New(ErrCodeInvalidInput, "identifier too long (max %d characters)", maxIDLength)
	}

	if strings.IndexFunc(id, func(r rune) bool { return unicode.IsControl(r) || unicode.IsSpace(r) }) >= 0 {
		return New(ErrCodeInvalidInput, "identifier %q contains whitespace or control characters", id)
	}
	if strings.Contains(id, "..") || strings.ContainsAny(id, "/\\") {
		return New(ErrCodeInvalidInput, "identifier %q contains a path separator", id)
	}
	return nil
}

// contentHashRegex matches the 16 lower-case hex characters of a content hash.
var contentHashRegex = regexp.MustCompile(`^[a-f0-9]{16}$`)

// ValidateContentHash validates a document content hash.
// Hashes name directories and storage keys, so anything other than exactly
// 16 lower-case hex characters is rejected.
func ValidateContentHash(hash string) error {
	if !contentHashRegex.MatchString(hash) {
		return New(ErrCodeInvalidPath, "invalid content hash format: %q", hash)
	}
	return nil
}

// ValidateFilename checks the original filename recorded with a document.
// An empty name is allowed. Anything else must be a bare file name: no
// directories, no control characters, at most 255 bytes.
func ValidateFilename(name string) error {
	switch {
	case name == "":
		return nil
	case len(name) > 255:
		return New(ErrCodeInvalidInput, "filename too long (max 255 bytes)")
	case name == "." || name == "..", strings.ContainsAny(name, "/\\"):
		return New(ErrCodeInvalidInput, "filename must not contain a directory: %q", name)
	case strings.IndexFunc(name, unicode.IsControl) >= 0:
		return New(ErrCodeInvalidInput, "filename contains control characters")
	}
	return nil
}

// ValidateURL accepts absolute http and https URLs with a host.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || rawURL == "" {
		return New(ErrCodeInvalidInput, "invalid URL %q", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return New(ErrCodeInvalidInput, "URL must use http or https: %q", rawURL)
	}
	if u.Host == "" {
		return New(ErrCodeInvalidInput, "URL has no host: %q", rawURL)
	}
	return nil
}
