package publish

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pagemill/pagemill/internal/models"
)

var (
	pathSegmentPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)
	slugPattern        = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// NormalizePath canonicalizes a publish path: the result always starts
// with "/", never ends with "/", and an empty input maps to the root
// path. Segments are restricted to lowercase letters, digits, dots,
// underscores and hyphens.
func NormalizePath(raw string) (string, error) {
	trimmed := strings.Trim(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return "/", nil
	}

	segments := strings.Split(trimmed, "/")
	for _, seg := range segments {
		if !pathSegmentPattern.MatchString(seg) {
			return "", &models.ValidationError{Reason: fmt.Sprintf("invalid path segment %q", seg)}
		}
	}

	return "/" + strings.Join(segments, "/"), nil
}

func validSlug(slug string) error {
	if !slugPattern.MatchString(slug) {
		return &models.ValidationError{Reason: fmt.Sprintf("slug %q must be lowercase letters, digits and hyphens", slug)}
	}
	return nil
}
