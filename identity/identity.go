// CLAUDE:SUMMARY Normalises handles from link paths or text fragments and fingerprints them with SHA-256.
// Package identity turns raw markup (a profile link path or a text
// fragment) into a normalised handle and computes the fingerprint used to
// look it up in the block-list without handling plaintext lists.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// Marker is the single leading character of every Identity.
const Marker = "@"

var (
	// ErrEmpty is returned when nothing remains once the marker is added.
	ErrEmpty = errors.New("identity: empty handle")
	// ErrSeparator is returned when the handle still contains a path separator.
	ErrSeparator = errors.New("identity: handle contains a path separator")
	// ErrNoMarker is returned when a text fragment does not start with Marker.
	ErrNoMarker = errors.New("identity: text does not start with the handle marker")
)

// Identity is a normalised handle, e.g. "@evil_bot".
type Identity string

func (i Identity) String() string { return string(i) }

// FromProfilePath derives an Identity from a profile link path such as
// "/evil_bot". The leading slash is stripped, the rest trimmed and
// prefixed with Marker.
func FromProfilePath(href string) (Identity, error) {
	handle := strings.TrimSpace(strings.TrimPrefix(href, "/"))
	return validate(Marker + handle)
}

// FromText derives an Identity from a visible text fragment. The trimmed
// text must already carry the marker.
func FromText(text string) (Identity, error) {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, Marker) {
		return "", ErrNoMarker
	}
	return validate(s)
}

func validate(s string) (Identity, error) {
	if s == Marker || s == "" {
		return "", ErrEmpty
	}
	if strings.Contains(s, "/") {
		return "", ErrSeparator
	}
	return Identity(s), nil
}

// Fingerprint is the lowercase hex SHA-256 digest of an Identity.
type Fingerprint string

func (f Fingerprint) String() string { return string(f) }

// Of fingerprints the exact UTF-8 bytes of id. No case folding.
func Of(id Identity) Fingerprint {
	sum := sha256.Sum256([]byte(id))
	return Fingerprint(hex.EncodeToString(sum[:]))
}
