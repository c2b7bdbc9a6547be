package util

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

var (
	ErrNoOrigin = errors.New("cannot extract origin")
)

var trailingExtension = regexp.MustCompile(`\.([a-zA-Z0-9]+)$`)

// IsHTTPURL returns true for absolute http:// and https:// URLs with a host.
func IsHTTPURL(s string) bool {
	parsedURL, err := url.Parse(s)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(parsedURL.Scheme)
	return (scheme == "http" || scheme == "https") && parsedURL.Host != ""
}

// PathExtension returns the lower-cased trailing extension (without the dot) of the URL with any query string
// removed, or "" if there is none.
func PathExtension(s string) string {
	s, _, _ = strings.Cut(s, "?")
	s, _, _ = strings.Cut(s, "#")
	if m := trailingExtension.FindStringSubmatch(s); m != nil {
		return strings.ToLower(m[1])
	}
	return ""
}

// Origin returns the "scheme://host[:port]" part of an absolute URL.
func Origin(s string) (string, error) {
	parsedURL, err := url.Parse(s)
	if err != nil {
		return "", err
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return "", ErrNoOrigin
	}
	return parsedURL.Scheme + "://" + parsedURL.Host, nil
}

// Resolve resolves ref against base, returning ref unchanged if either cannot be parsed.
func Resolve(base string, ref string) string {
	baseURL, err := url.Parse(base)
	if err != nil || base == "" {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
