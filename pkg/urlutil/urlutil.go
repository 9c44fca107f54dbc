package urlutil

import (
	"fmt"
	"net/url"
)

// Canonicalize applies a deterministic normalization to a request URL, producing
// the form used as cache identity.
//
// The normalization follows these rules:
//   - Scheme and host are lowercased
//   - Default ports are omitted (e.g., :80 for http, :443 for https)
//   - Fragments are removed
//   - Path and query are kept exactly as sent, including percent-encoding
//
// Properties:
//   - Pure: no state, no memory
//   - Deterministic: same input always produces same output
//   - Idempotent: Canonicalize(Canonicalize(url)) == Canonicalize(url)
func Canonicalize(sourceUrl url.URL) url.URL {
	// Create a copy to avoid mutating the original
	canonical := sourceUrl

	canonical.Scheme = lowerASCII(canonical.Scheme)
	canonical.Host = lowerASCII(canonical.Host)

	if host, port := canonical.Hostname(), canonical.Port(); port != "" {
		if (canonical.Scheme == "http" && port == "80") ||
			(canonical.Scheme == "https" && port == "443") {
			canonical.Host = host
		}
	}

	if canonical.Path == "" && canonical.Host != "" {
		canonical.Path = "/"
	}

	canonical.Fragment = ""
	canonical.RawFragment = ""
	canonical.User = nil

	return canonical
}

// Resolve resolves an origin-relative reference ("/audio/C%235.wav", "/favicons/a.png?v=2")
// against an absolute base URL. The escaped form of the reference path is preserved.
func Resolve(base url.URL, reference string) (url.URL, error) {
	if !base.IsAbs() {
		return url.URL{}, fmt.Errorf("base URL is not absolute: %q", base.String())
	}
	ref, err := url.Parse(reference)
	if err != nil {
		return url.URL{}, fmt.Errorf("parse reference %q: %w", reference, err)
	}
	return *base.ResolveReference(ref), nil
}

// ResolveRequestURL maps the URL of a request received by the agent onto the origin.
// Only path and query are taken from the request URL.
func ResolveRequestURL(base url.URL, requestURL url.URL) url.URL {
	ref := url.URL{
		Path:     requestURL.Path,
		RawPath:  requestURL.RawPath,
		RawQuery: requestURL.RawQuery,
	}
	return *base.ResolveReference(&ref)
}

// lowerASCII converts ASCII characters to lowercase without allocating.
// This is faster than strings.ToLower for ASCII-only strings.
func lowerASCII(s string) string {
	var needsLower bool
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			needsLower = true
			break
		}
	}
	if !needsLower {
		return s
	}
	b := make([]byte, len(s))
	copy(b, s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
