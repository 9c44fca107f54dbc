package agent

import (
	"net/http"
	"strconv"

	"github.com/rohmanhakim/asset-interceptor/internal/interceptor"
)

const HeaderCache = "X-Cache"

// writeOutcome writes a handled response. The body is always fully
// materialized, so Content-Length is exact.
func writeOutcome(w http.ResponseWriter, req *http.Request, outcome interceptor.Outcome) {
	resp := outcome.Response
	header := w.Header()
	for name, values := range resp.Header {
		header[name] = append([]string(nil), values...)
	}
	header.Del("Content-Length")

	if outcome.Source == interceptor.SourceCache {
		header.Set(HeaderCache, "HIT")
	} else {
		header.Set(HeaderCache, "MISS")
	}

	if !bodyAllowed(resp.Status) {
		w.WriteHeader(resp.Status)
		return
	}
	header.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	w.WriteHeader(resp.Status)
	if req.Method != http.MethodHead {
		_, _ = w.Write(resp.Body)
	}
}

func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status <= 199:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}
