package cachestorage

import (
	"net/http"
	"net/url"
	"time"

	"github.com/rohmanhakim/asset-interceptor/pkg/urlutil"
)

// RequestKey is the identity under which a response is stored:
// method plus canonical absolute URL.
type RequestKey struct {
	Method string
	URL    string
}

func NewRequestKey(method string, requestURL url.URL) RequestKey {
	canonical := urlutil.Canonicalize(requestURL)
	return RequestKey{
		Method: method,
		URL:    canonical.String(),
	}
}

func (k RequestKey) String() string {
	return k.Method + " " + k.URL
}

// Response is a stored response. Its body is fully materialized, so a
// Response can be read any number of times; Clone yields an independent copy
// that shares no header map or body bytes with the original.
type Response struct {
	Status   int
	Header   http.Header
	Body     []byte
	Digest   string
	StoredAt time.Time
}

func (r Response) Clone() Response {
	clone := r
	clone.Header = r.Header.Clone()
	if r.Body != nil {
		clone.Body = make([]byte, len(r.Body))
		copy(clone.Body, r.Body)
	}
	return clone
}

func (r Response) SizeByte() uint64 {
	return uint64(len(r.Body))
}

// Entry pairs a request identity with its stored response, for bulk writes.
type Entry struct {
	Key      RequestKey
	Response Response
}
