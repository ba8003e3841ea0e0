// Package databrowser serves the query UI, query results as JSON and CSV,
// public saved views and the saved view API.
package databrowser

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/bitechdev/DataBrowser/pkg/common"
	"github.com/bitechdev/DataBrowser/pkg/logger"
	"github.com/bitechdev/DataBrowser/pkg/metrics"
	"github.com/bitechdev/DataBrowser/pkg/orm"
	"github.com/bitechdev/DataBrowser/pkg/query"
	"github.com/bitechdev/DataBrowser/pkg/security"
	"github.com/bitechdev/DataBrowser/pkg/views"
)

// Version is reported to the client. Overridden at build time.
var Version = "dev"

// errUnknownModel is returned when the requested model is not browsable by
// the current user.
var errUnknownModel = errors.New("unknown model")

// Options configures a Handler.
type Options struct {
	// BasePath is the URL prefix the routes are mounted under, e.g.
	// "/data_browser". Empty mounts at the root.
	BasePath        string
	AllowPublic     bool
	DefaultRowLimit int
	Dev             bool
	DevServerURL    string
	FrontendDSN     string
	Metrics         metrics.Collector
}

// Handler serves the data browser.
type Handler struct {
	db      common.Database
	catalog *orm.Catalog
	views   *views.Store
	users   *security.UserStore
	opts    Options
	metrics metrics.Collector
}

// NewHandler creates a new handler.
func NewHandler(db common.Database, catalog *orm.Catalog, opts Options) *Handler {
	if opts.DefaultRowLimit < 1 {
		opts.DefaultRowLimit = query.DefaultLimit
	}
	collector := opts.Metrics
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	return &Handler{
		db:      db,
		catalog: catalog,
		views:   views.NewStore(db),
		users:   security.NewUserStore(db),
		opts:    opts,
		metrics: collector,
	}
}

// Views exposes the saved view store.
func (h *Handler) Views() *views.Store {
	return h.views
}

// Users exposes the user store.
func (h *Handler) Users() *security.UserStore {
	return h.users
}

func (h *Handler) baseURL() string {
	return h.opts.BasePath + "/"
}

// modelsFor returns the models the request's user may browse.
func (h *Handler) modelsFor(user *security.User) orm.Models {
	if user == nil {
		return h.catalog.ModelsFor(nil)
	}
	return h.catalog.ModelsFor(user)
}

// rootModel checks that name is a browsable model in models.
func rootModel(models orm.Models, name string) error {
	model, ok := models[name]
	if !ok || !model.Root {
		return fmt.Errorf("%s does not exist: %w", name, errUnknownModel)
	}
	return nil
}

// handlePanic is a helper function to handle panics with stack traces
func (h *Handler) handlePanic(w http.ResponseWriter, method string, err interface{}) {
	stack := debug.Stack()
	logger.Error("Panic in %s: %v\nStack trace:\n%s", method, err, string(stack))
	h.sendError(w, http.StatusInternalServerError, "internal_error", fmt.Sprintf("Internal server error in %s", method), fmt.Errorf("%v", err))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("Failed to write response: %v", err)
	}
}

func (h *Handler) sendResponse(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, common.Response{
		Success: true,
		Data:    data,
	})
}

func (h *Handler) sendError(w http.ResponseWriter, status int, code, message string, err error) {
	writeJSON(w, status, common.NewErrorResponse(code, message, err))
}

// sendStoreError maps store errors onto HTTP statuses.
func (h *Handler) sendStoreError(w http.ResponseWriter, operation string, err error) {
	switch {
	case errors.Is(err, views.ErrNotFound), errors.Is(err, security.ErrUserNotFound), errors.Is(err, errUnknownModel):
		h.sendError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, views.ErrForbidden):
		h.sendError(w, http.StatusForbidden, "forbidden", err.Error(), nil)
	default:
		logger.Error("Error in %s: %v", operation, err)
		h.sendError(w, http.StatusInternalServerError, "internal_error", fmt.Sprintf("Error in %s", operation), err)
	}
}

// Healthz reports that the server is up and the database answers.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	var rows []map[string]interface{}
	if err := h.db.Query(r.Context(), &rows, "SELECT 1 AS ok"); err != nil {
		h.sendError(w, http.StatusServiceUnavailable, "unavailable", "Database unavailable", err)
		return
	}
	h.sendResponse(w, http.StatusOK, map[string]interface{}{"status": "ok", "version": Version})
}
