// package youtube extracts and validates YouTube identifiers from user
// input: raw video ids, watch/shorts/youtu.be URLs, and channel ids.
package youtube

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	videoIDRe   = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	channelIDRe = regexp.MustCompile(`^UC[A-Za-z0-9_-]{22}$`)
)

// IsValidVideoID reports whether s looks like an 11-character video id.
func IsValidVideoID(s string) bool {
	return videoIDRe.MatchString(s)
}

// IsValidChannelID reports whether s looks like a UC... channel id.
func IsValidChannelID(s string) bool {
	return channelIDRe.MatchString(s)
}

// ExtractVideoID resolves user input to a video id. Accepts a bare id, a
// youtube.com/watch?v= URL, a /shorts/ or /live/ URL, or a youtu.be short
// link, on any of the usual host aliases.
func ExtractVideoID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("empty video reference")
	}
	if IsValidVideoID(input) {
		return input, nil
	}

	raw := input
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse video URL %q: %w", input, err)
	}

	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	host = strings.TrimPrefix(host, "m.")

	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com":
		switch {
		case u.Path == "/watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/shorts/"):
			id = strings.Trim(strings.TrimPrefix(u.Path, "/shorts/"), "/")
		case strings.HasPrefix(u.Path, "/live/"):
			id = strings.Trim(strings.TrimPrefix(u.Path, "/live/"), "/")
		case strings.HasPrefix(u.Path, "/embed/"):
			id = strings.Trim(strings.TrimPrefix(u.Path, "/embed/"), "/")
		}
	default:
		return "", fmt.Errorf("unsupported host %q", u.Hostname())
	}

	if !IsValidVideoID(id) {
		return "", fmt.Errorf("no video id in %q", input)
	}
	return id, nil
}
