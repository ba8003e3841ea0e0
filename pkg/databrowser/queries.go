package databrowser

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/bitechdev/DataBrowser/pkg/csvtable"
	"github.com/bitechdev/DataBrowser/pkg/logger"
	"github.com/bitechdev/DataBrowser/pkg/orm"
	"github.com/bitechdev/DataBrowser/pkg/query"
	"github.com/bitechdev/DataBrowser/pkg/security"
	"github.com/bitechdev/DataBrowser/pkg/views"
	"github.com/gorilla/mux"
)

//go:embed templates
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	BaseURL string
	Ctx     template.JS
}

// Home serves the UI with an empty query.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if err := recover(); err != nil {
			h.handlePanic(w, "Home", err)
		}
	}()

	user, _ := security.GetUser(r.Context())
	q := query.FromRequest("", "", r.URL.RawQuery, h.opts.DefaultRowLimit)
	h.renderHTML(w, r, user, q)
}

// Query serves /query/{model}/{fields}.{media} for html, ctx, json and csv.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if err := recover(); err != nil {
			h.handlePanic(w, "Query", err)
		}
	}()

	vars := mux.Vars(r)
	user, _ := security.GetUser(r.Context())
	q := query.FromRequest(vars["model"], vars["fields"], r.URL.RawQuery, h.opts.DefaultRowLimit)

	switch media := vars["media"]; media {
	case "html":
		h.renderHTML(w, r, user, q)
	case "ctx":
		ctx, err := h.clientContext(r.Context(), user, q)
		if err != nil {
			h.sendStoreError(w, "Query", err)
			return
		}
		writeJSON(w, http.StatusOK, ctx)
	case "json", "csv":
		h.dataResponse(w, r, user, q, media, true)
	default:
		h.sendError(w, http.StatusNotFound, "not_found", fmt.Sprintf("Unknown format %q", media), nil)
	}
}

// View serves a public saved view, run as its owner.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if err := recover(); err != nil {
			h.handlePanic(w, "View", err)
		}
	}()

	vars := mux.Vars(r)
	ctx := r.Context()

	view, err := h.views.GetPublic(ctx, vars["slug"])
	if err != nil {
		h.sendStoreError(w, "View", err)
		return
	}

	owner, err := h.users.Get(ctx, view.OwnerID)
	if err != nil && !errors.Is(err, security.ErrUserNotFound) {
		h.sendStoreError(w, "View", err)
		return
	}
	if owner == nil || !views.CanServePublicly(view, owner, h.opts.AllowPublic) {
		logger.Debug("Refusing public view %s", view.PublicSlug)
		h.sendError(w, http.StatusNotFound, "not_found", "No View matches the given query.", nil)
		return
	}

	h.dataResponse(w, r, owner, view.GetQuery(h.opts.DefaultRowLimit), vars["media"], false)
}

func (h *Handler) renderHTML(w http.ResponseWriter, r *http.Request, user *security.User, q *query.Query) {
	ctx, err := h.clientContext(r.Context(), user, q)
	if err != nil {
		h.sendStoreError(w, "Query", err)
		return
	}
	raw, err := escapedJSON(ctx)
	if err != nil {
		h.sendStoreError(w, "Query", err)
		return
	}

	tmpl := indexTemplate
	if h.opts.Dev {
		tmpl, err = h.devTemplate(r.Context(), r.URL.Path)
		if err != nil {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = fmt.Fprintf(w, "Error loading from JS dev server.<br><br>%s", template.HTMLEscapeString(err.Error()))
			return
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, pageData{BaseURL: h.baseURL(), Ctx: template.JS(raw)}); err != nil {
		logger.Error("Failed to render page: %v", err)
	}
}

// devTemplate loads the page template from the frontend dev server.
func (h *Handler) devTemplate(ctx context.Context, path string) (*template.Template, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.opts.DevServerURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dev server returned %s", resp.Status)
	}
	return template.New("dev").Parse(string(body))
}

// dataResponse runs q as user and writes json or csv. meta adds the bound
// query description to json output.
func (h *Handler) dataResponse(w http.ResponseWriter, r *http.Request, user *security.User, q *query.Query, media string, meta bool) {
	models := h.modelsFor(user)
	if err := rootModel(models, q.ModelName); err != nil {
		h.sendStoreError(w, "Query", err)
		return
	}
	bound := query.Bind(q, models)

	start := time.Now()
	res, err := orm.GetResults(r.Context(), h.db, bound.Selection())
	if err != nil {
		h.sendStoreError(w, "Query", err)
		return
	}
	h.metrics.ObserveQuery(q.ModelName, media, len(res.Results), time.Since(start))

	switch media {
	case "csv":
		filename := fmt.Sprintf("%s-%s.csv", q.ModelName, time.Now().UTC().Format(time.RFC3339))
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename="+filename)
		if err := csvtable.Write(w, layout(bound), res); err != nil {
			logger.Error("Failed to write csv: %v", err)
		}
	case "json":
		body := map[string]interface{}{}
		if meta {
			body = queryData(bound, body)
		}
		body["results"] = res.Results
		body["cols"] = res.Cols
		body["rows"] = res.Rows
		body["body"] = res.Body
		writeJSON(w, http.StatusOK, body)
	default:
		h.sendError(w, http.StatusNotFound, "not_found", fmt.Sprintf("Unknown format %q", media), nil)
	}
}

func columns(fields []*query.BoundField) []csvtable.Column {
	result := make([]csvtable.Column, len(fields))
	for i, f := range fields {
		result[i] = f
	}
	return result
}

func layout(bound *query.BoundQuery) csvtable.Layout {
	return csvtable.Layout{
		RowFields:  columns(bound.RowFields()),
		ColFields:  columns(bound.ColFields()),
		DataFields: columns(bound.DataFields()),
	}
}
