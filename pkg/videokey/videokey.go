// Package videokey derives short storage-safe identities for video locators.
package videokey

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/url"
	"strings"
	"unicode/utf8"

	"ai-video-companion/pkg/store"
)

const (
	keyPrefix         = "rag_"
	fingerprintLength = 12
	maxLegibleLength  = 64

	// Unknown is the key of an empty locator.
	Unknown store.VideoKey = "rag_unknown"
	// Invalid is the key of a locator that cannot be fingerprinted.
	Invalid store.VideoKey = "rag_invalid"
)

var errInvalidLocator = errors.New("locator is not valid utf-8")

// Derive maps a locator to its VideoKey. The key is deterministic: the
// legible part comes from the last two path segments and the fingerprint
// covers the whole locator, so locators that only differ in host or query
// still get distinct keys.
func Derive(locator string) store.VideoKey {
	if locator == "" {
		return Unknown
	}

	fp, err := fingerprint(locator)
	if err != nil {
		return Invalid
	}

	u, err := url.Parse(locator)
	if err != nil || u.Scheme == "" {
		return store.VideoKey(keyPrefix + fp)
	}

	legible := sanitize(lastSegments(u.Path, 2))
	if len(legible) > maxLegibleLength {
		legible = legible[len(legible)-maxLegibleLength:]
	}
	return store.VideoKey(keyPrefix + legible + "_" + fp)
}

func lastSegments(path string, n int) string {
	parts := strings.Split(path, "/")
	if len(parts) > n {
		parts = parts[len(parts)-n:]
	}
	return strings.Join(parts, "_")
}

// fingerprint escapes the locator to plain ASCII, base64-encodes a digest
// of it and keeps the first alphanumeric characters.
func fingerprint(locator string) (string, error) {
	if !utf8.ValidString(locator) {
		return "", errInvalidLocator
	}
	sum := sha256.Sum256([]byte(url.QueryEscape(locator)))
	encoded := stripNonAlnum(base64.StdEncoding.EncodeToString(sum[:]))
	if len(encoded) > fingerprintLength {
		encoded = encoded[:fingerprintLength]
	}
	return encoded, nil
}

func stripNonAlnum(s string) string {
	return strings.Map(func(r rune) rune {
		if isAlnum(r) {
			return r
		}
		return -1
	}, s)
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if isAlnum(r) || r == '_' {
			return r
		}
		return -1
	}, s)
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
