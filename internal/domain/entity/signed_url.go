package entity

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SignedURLKind tells which response shape the platform used
type SignedURLKind int

const (
	SignedURLUnrecognized SignedURLKind = iota
	SignedURLCamel                      // {"signedURL": "..."}
	SignedURLSnake                      // {"signed_url": "..."}
)

func (k SignedURLKind) String() string {
	switch k {
	case SignedURLCamel:
		return "signedURL"
	case SignedURLSnake:
		return "signed_url"
	default:
		return "unrecognized"
	}
}

// SignedURLResponse is the decoded answer of a sign request
type SignedURLResponse struct {
	Kind SignedURLKind
	URL  string
	Raw  []byte
}

// ParseSignedURLResponse decodes a sign response body.
// A body that is not a JSON object, or has no non-empty known field, yields SignedURLUnrecognized.
func ParseSignedURLResponse(body []byte) SignedURLResponse {
	resp := SignedURLResponse{Kind: SignedURLUnrecognized, Raw: body}

	var fields map[string]interface{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return resp
	}

	if s, ok := fields["signedURL"].(string); ok && s != "" {
		resp.Kind = SignedURLCamel
		resp.URL = s
		return resp
	}
	if s, ok := fields["signed_url"].(string); ok && s != "" {
		resp.Kind = SignedURLSnake
		resp.URL = s
		return resp
	}

	return resp
}

// Resolve returns an absolute URL. Relative URLs are joined onto base.
func (r SignedURLResponse) Resolve(base string) (string, error) {
	if r.Kind == SignedURLUnrecognized {
		return "", fmt.Errorf("%w: %s", ErrUnrecognizedSignedURL, truncate(string(r.Raw), 200))
	}
	if strings.HasPrefix(r.URL, "http://") || strings.HasPrefix(r.URL, "https://") {
		return r.URL, nil
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(r.URL, "/"), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
