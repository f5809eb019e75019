package sources

import "strings"

// Fixed desktop-browser identity sent with every outbound request.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Accept headers per fetched content type.
const (
	AcceptRSS  = "application/rss+xml, application/xml;q=0.9, */*;q=0.8"
	AcceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

const (
	configUserAgentKey      = "user_agent"
	configAcceptLanguageKey = "accept_language"
)

// configString returns the trimmed string value for key from source.Config or a fallback.
func configString(src Source, key, fallback string) string {
	if src.Config != nil {
		if raw, ok := src.Config[key]; ok {
			if val, ok := raw.(string); ok {
				if trimmed := strings.TrimSpace(val); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return fallback
}

// Headers builds the request headers for a source fetch. accept selects the
// RSS or HTML variant; the user agent can be overridden per source.
func Headers(src Source, accept string) map[string]string {
	headers := map[string]string{
		"User-Agent": configString(src, configUserAgentKey, DefaultUserAgent),
		"Accept":     accept,
	}
	if v := configString(src, configAcceptLanguageKey, ""); v != "" {
		headers["Accept-Language"] = v
	}
	return headers
}
