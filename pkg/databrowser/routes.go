package databrowser

import (
	"net/http"

	"github.com/bitechdev/DataBrowser/pkg/metrics"
	"github.com/bitechdev/DataBrowser/pkg/security"
	"github.com/gorilla/mux"
)

// SetupMuxRoutes mounts the data browser on muxRouter under the configured
// base path. authenticate resolves the user of each request; nil leaves every
// request anonymous.
func SetupMuxRoutes(muxRouter *mux.Router, handler *Handler, authenticate security.AuthenticateFunc) error {
	// field strings carry characters path cleaning would mangle
	muxRouter.SkipClean(true)
	muxRouter.Use(metrics.Middleware(handler.metrics))

	muxRouter.HandleFunc("/healthz", handler.Healthz).Methods(http.MethodGet)

	r := muxRouter
	if handler.opts.BasePath != "" {
		r = muxRouter.PathPrefix(handler.opts.BasePath).Subrouter()
	}
	r.Use(security.AuthMiddleware(authenticate))

	staff := func(fn http.HandlerFunc) http.Handler {
		return security.RequireStaff(fn)
	}

	r.Handle("/", staff(handler.Home)).Methods(http.MethodGet)
	r.Handle("/query/{model}/{fields:[^/]*}.{media:html|ctx|json|csv}", staff(handler.Query)).Methods(http.MethodGet)
	r.HandleFunc("/view/{slug}.{media:json|csv}", handler.View).Methods(http.MethodGet)

	r.Handle("/api/views", staff(handler.ListViews)).Methods(http.MethodGet)
	r.Handle("/api/views", staff(handler.CreateView)).Methods(http.MethodPost)
	r.Handle("/api/views/{id:[0-9]+}", staff(handler.GetView)).Methods(http.MethodGet)
	r.Handle("/api/views/{id:[0-9]+}", staff(handler.UpdateView)).Methods(http.MethodPut)
	r.Handle("/api/views/{id:[0-9]+}", staff(handler.DeleteView)).Methods(http.MethodDelete)

	if handler.opts.Dev {
		proxy, err := handler.DevProxy()
		if err != nil {
			return err
		}
		r.PathPrefix("/frontend/").Handler(proxy)
	}
	return nil
}
