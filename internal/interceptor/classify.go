package interceptor

import (
	"net/http"
	"net/url"
	"strings"
)

// Class is the interception class of a request. It is derived, never stored.
type Class int

const (
	ClassPassThrough Class = iota
	ClassMedia
	ClassStatic
)

func (c Class) String() string {
	switch c {
	case ClassMedia:
		return "media"
	case ClassStatic:
		return "static"
	default:
		return "pass-through"
	}
}

const (
	MediaPrefix  = "/audio/"
	StaticPrefix = "/favicons/"
)

// Classify maps a request to exactly one class. First match wins:
//  1. any method other than GET is pass-through
//  2. a path under /audio/ is media
//  3. a path under /favicons/ is static
//  4. everything else is pass-through
//
// Prefixes are matched against the escaped path, as sent on the wire. A path
// with "." or ".." segments is pass-through: resolving it against the origin
// could leave the prefix it was classified by.
func Classify(method string, requestURL url.URL) Class {
	if method != http.MethodGet {
		return ClassPassThrough
	}
	path := requestURL.EscapedPath()
	if hasDotSegment(path) {
		return ClassPassThrough
	}
	switch {
	case strings.HasPrefix(path, MediaPrefix):
		return ClassMedia
	case strings.HasPrefix(path, StaticPrefix):
		return ClassStatic
	default:
		return ClassPassThrough
	}
}

func hasDotSegment(path string) bool {
	for _, segment := range strings.Split(path, "/") {
		if segment == "." || segment == ".." {
			return true
		}
	}
	return false
}
