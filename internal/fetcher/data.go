package fetcher

import (
	"net/http"
	"net/url"
)

// HTTP boundary

type FetchParam struct {
	method   string
	fetchUrl url.URL
	header   http.Header
}

// NewFetchParam describes a single network request. fetchUrl must be absolute.
// header carries the caller's request headers; it may be nil.
func NewFetchParam(method string, fetchUrl url.URL, header http.Header) FetchParam {
	if method == "" {
		method = http.MethodGet
	}
	return FetchParam{
		method:   method,
		fetchUrl: fetchUrl,
		header:   header,
	}
}

func (p FetchParam) Method() string {
	return p.method
}

func (p FetchParam) URL() url.URL {
	return p.fetchUrl
}

type FetchResult struct {
	url  url.URL
	body []byte
	meta ResponseMeta
}

func (f *FetchResult) URL() url.URL {
	return f.url
}

func (f *FetchResult) Body() []byte {
	return f.body
}

func (f *FetchResult) Code() int {
	return f.meta.statusCode
}

// OK reports whether the status is in the 2xx range.
func (f *FetchResult) OK() bool {
	return f.meta.statusCode >= 200 && f.meta.statusCode < 300
}

func (f *FetchResult) SizeByte() uint64 {
	return f.meta.transferredSizeByte
}

func (f *FetchResult) Header() http.Header {
	return f.meta.responseHeaders
}

func (f *FetchResult) ContentType() string {
	return f.meta.responseHeaders.Get("Content-Type")
}

// Digest is the BLAKE3 digest of the decoded body.
func (f *FetchResult) Digest() string {
	return f.meta.digest
}

type ResponseMeta struct {
	statusCode          int
	transferredSizeByte uint64
	responseHeaders     http.Header
	digest              string
}

// NewFetchResultForTest creates a FetchResult for testing purposes.
// This allows test packages to construct FetchResult values without
// accessing unexported fields directly.
func NewFetchResultForTest(
	url url.URL,
	body []byte,
	statusCode int,
	responseHeaders http.Header,
) FetchResult {
	if responseHeaders == nil {
		responseHeaders = http.Header{}
	}
	return FetchResult{
		url:  url,
		body: body,
		meta: ResponseMeta{
			statusCode:          statusCode,
			transferredSizeByte: uint64(len(body)),
			responseHeaders:     responseHeaders,
			digest:              digestOf(body),
		},
	}
}
