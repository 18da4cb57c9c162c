package rider

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// BaseURL is the public share-link host. Share links look like
// https://rider.live/fr/a/XXXXX, possibly with tracking query parameters.
const BaseURL = "https://rider.live"

var (
	// ErrInvalidURL means the link is not a rider.live share link at all.
	ErrInvalidURL = errors.New("share url must start with " + BaseURL)
	// ErrInvalidURLFormat means the host matched but no /a/<token> path
	// segment was found.
	ErrInvalidURLFormat = errors.New("share url has no /a/<token> segment")
)

var shareTokenRe = regexp.MustCompile(`/a/([^/]+)`)

// ShareRef identifies one shared ride. Derived once from the user-supplied
// link and immutable afterwards.
type ShareRef struct {
	RawURL string // Cleaned link, used as Referer on every fetch
	Token  string // Opaque share token from the /a/ path segment
}

// ExtractShareRef validates a share link and pulls out its token. One leading
// "@" is stripped first (links pasted from chat clients often carry it).
// Query string and fragment are ignored so tracking parameters are inert.
func ExtractShareRef(rawURL string) (ShareRef, error) {
	cleaned := strings.TrimPrefix(rawURL, "@")

	if !strings.HasPrefix(cleaned, BaseURL) {
		return ShareRef{}, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	parsed, err := url.Parse(cleaned)
	if err != nil {
		return ShareRef{}, fmt.Errorf("%w: %v", ErrInvalidURLFormat, err)
	}

	match := shareTokenRe.FindStringSubmatch(parsed.Path)
	if match == nil {
		return ShareRef{}, fmt.Errorf("%w: %q", ErrInvalidURLFormat, rawURL)
	}

	return ShareRef{RawURL: cleaned, Token: match[1]}, nil
}
