package agent

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/rohmanhakim/asset-interceptor/internal/metadata"
)

// NewOriginProxy forwards requests to origin unchanged apart from the target
// URL and the X-Forwarded headers. This is the default network path.
func NewOriginProxy(origin url.URL, metadataSink metadata.MetadataSink, transport http.RoundTripper) *httputil.ReverseProxy {
	target := origin
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(&target)
			pr.SetXForwarded()
		},
		Transport: transport,
		ErrorHandler: func(w http.ResponseWriter, req *http.Request, err error) {
			metadataSink.RecordError(
				time.Now(),
				"agent",
				"OriginProxy",
				metadata.CauseNetworkFailure,
				err.Error(),
				[]metadata.Attribute{
					metadata.NewAttr(metadata.AttrMethod, req.Method),
					metadata.NewAttr(metadata.AttrURL, req.URL.String()),
				},
			)
			w.WriteHeader(http.StatusBadGateway)
		},
	}
}
