package storage

import (
	"context"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const (
	slugShortSuffixLen = 6
	slugLongSuffixLen  = 12
	slugRetries        = 3
)

// generateSlug derives a unique post slug from the title: slugified base plus
// a short random suffix, retried a few times on collision. After the retries a
// longer suffix is used without another check; the residual collision
// probability is accepted as negligible.
func (s *Store) generateSlug(ctx context.Context, title string) (string, error) {
	base := slugify(title)
	if base == "" {
		base = "news"
	}

	for i := 0; i < slugRetries; i++ {
		slug := base + "-" + randomSuffix(slugShortSuffixLen)
		exists, err := s.slugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
	}

	return base + "-" + randomSuffix(slugLongSuffixLen), nil
}

// slugify lowercases the title and reduces it to hyphen-separated
// alphanumeric runs.
func slugify(title string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if r > unicode.MaxASCII {
				// Keep slugs ASCII; non-Latin characters are dropped
				// and the random suffix keeps the slug unique.
				continue
			}
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func randomSuffix(n int) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(raw) {
		n = len(raw)
	}
	return raw[:n]
}
