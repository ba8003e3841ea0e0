package databrowser

import (
	"fmt"
	"html/template"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/bitechdev/DataBrowser/pkg/logger"
)

// DevProxy forwards requests to the frontend dev server unchanged.
func (h *Handler) DevProxy() (http.Handler, error) {
	target, err := url.Parse(h.opts.DevServerURL)
	if err != nil {
		return nil, fmt.Errorf("parse dev server url: %w", err)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Warn("Dev server proxy failed for %s: %v", r.URL.Path, err)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = fmt.Fprintf(w, "Error loading from JS dev server.<br><br>%s", template.HTMLEscapeString(err.Error()))
	}
	return proxy, nil
}
