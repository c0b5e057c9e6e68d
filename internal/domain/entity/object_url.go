package entity

import (
	"fmt"
	"net/url"
	"strings"
)

// SplitObjectURL strips prefix from rawURL and splits the rest into bucket and
// object path. Percent-encoded segments are decoded.
func SplitObjectURL(rawURL, prefix string) (string, string, error) {
	prefix = strings.TrimRight(prefix, "/") + "/"
	if !strings.HasPrefix(rawURL, prefix) {
		return "", "", fmt.Errorf("%w: must start with %q", ErrInvalidObjectURL, prefix)
	}

	rest := strings.TrimPrefix(rawURL, prefix)
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}

	bucket, path, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("%w: bucket is missing", ErrInvalidObjectURL)
	}
	if path == "" {
		return "", "", fmt.Errorf("%w: object path is missing", ErrInvalidObjectURL)
	}

	bucket, err := url.PathUnescape(bucket)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidObjectURL, err)
	}
	path, err = url.PathUnescape(path)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidObjectURL, err)
	}

	return bucket, path, nil
}

// JoinObjectURL is the inverse of SplitObjectURL. Every path segment is escaped.
func JoinObjectURL(prefix, bucket, path string) string {
	return strings.TrimRight(prefix, "/") + "/" + url.PathEscape(bucket) + "/" + EscapeObjectPath(path)
}

// EscapeObjectPath percent-encodes each segment of an object path, keeping the separators
func EscapeObjectPath(p string) string {
	segments := strings.Split(strings.TrimLeft(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
