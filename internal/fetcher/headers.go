package fetcher

import (
	"net/http"
	"net/textproto"
	"strings"
)

// hopHeaders are connection-scoped and never forwarded or stored.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// endToEndHeaders returns a copy of h without hop-by-hop headers, including
// any header named by the Connection header.
func endToEndHeaders(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		return http.Header{}
	}
	for _, v := range h["Connection"] {
		for _, name := range strings.Split(v, ",") {
			if name = textproto.TrimString(name); name != "" {
				out.Del(name)
			}
		}
	}
	for _, name := range hopHeaders {
		out.Del(name)
	}
	return out
}

// outgoingHeaders prepares caller headers for a request to the origin.
// Accept-Encoding is dropped so the transport negotiates compression itself
// and the body handed back is always decoded.
func outgoingHeaders(h http.Header, userAgent string) http.Header {
	out := endToEndHeaders(h)
	out.Del("Accept-Encoding")
	out.Del("Host")
	out.Del("Content-Length")
	if userAgent != "" && out.Get("User-Agent") == "" {
		out.Set("User-Agent", userAgent)
	}
	return out
}
