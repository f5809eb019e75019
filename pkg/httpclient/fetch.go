package httpclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// FetchError reports a GET that could not produce a usable document: transport
// failure, non-2xx status, or an empty body.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err (or anything it wraps) is a FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// GetString fetches url and validates the response: the status must be in the
// 2xx range and the body non-empty after trimming whitespace. Failures are
// returned as *FetchError; there are no retries at this layer.
func GetString(ctx context.Context, client Client, url string, headers map[string]string) (string, error) {
	resp, err := client.Get(ctx, url, headers)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return "", &FetchError{URL: url, StatusCode: resp.StatusCode()}
	}

	body := string(resp.Body())
	if strings.TrimSpace(body) == "" {
		return "", &FetchError{URL: url, StatusCode: resp.StatusCode(), Err: errors.New("empty response body")}
	}

	return body, nil
}
