package utils

import (
	"net/http"
	"net/url"
)

// UserAgent identifies oski to search backends.
const UserAgent = "oski/1.0 (+https://github.com/mbanderson/Oski)"

// IsValidURL reports whether raw is an absolute http(s) URL with a host.
func IsValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// BuildHeaders creates HTTP headers with defaults.
func BuildHeaders(customHeaders map[string]string) http.Header {
	headers := http.Header{}

	headers.Set("User-Agent", UserAgent)
	headers.Set("Accept", "application/json")

	for key, value := range customHeaders {
		headers.Set(key, value)
	}

	return headers
}
