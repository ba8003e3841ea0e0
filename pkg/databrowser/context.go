package databrowser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bitechdev/DataBrowser/pkg/orm"
	"github.com/bitechdev/DataBrowser/pkg/query"
	"github.com/bitechdev/DataBrowser/pkg/security"
	"github.com/bitechdev/DataBrowser/pkg/types"
	"github.com/bitechdev/DataBrowser/pkg/views"
)

// SavedView is a saved view as listed in the client config.
type SavedView struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Public      bool        `json:"public"`
	PublicSlug  string      `json:"publicSlug"`
	Model       string      `json:"model"`
	Description string      `json:"description"`
	Query       *query.Data `json:"query"`
}

// queryData merges the bound query description into body.
func queryData(bound *query.BoundQuery, body map[string]interface{}) map[string]interface{} {
	data := bound.Data(Version)
	body["filters"] = data.Filters
	body["filterErrors"] = data.FilterErrors
	body["fields"] = data.Fields
	body["model"] = data.Model
	body["version"] = data.Version
	return body
}

func (h *Handler) savedViews(ctx context.Context, user *security.User, models orm.Models) ([]SavedView, error) {
	result := []SavedView{}
	if user == nil {
		return result, nil
	}
	list, _, err := h.views.List(ctx, user.ID, views.Page{})
	if err != nil {
		return nil, err
	}
	for _, v := range list {
		bound := query.Bind(v.GetQuery(h.opts.DefaultRowLimit), models)
		result = append(result, SavedView{
			ID:          v.ID,
			Name:        v.Name,
			Public:      v.Public,
			PublicSlug:  v.PublicSlug,
			Model:       v.ModelName,
			Description: v.Description,
			Query:       bound.Data(Version),
		})
	}
	return result, nil
}

func (h *Handler) config(ctx context.Context, user *security.User, models orm.Models) (map[string]interface{}, error) {
	saved, err := h.savedViews(ctx, user, models)
	if err != nil {
		return nil, fmt.Errorf("load saved views: %w", err)
	}
	return map[string]interface{}{
		"baseUrl":        h.baseURL(),
		"types":          types.Catalogue(),
		"allModelFields": models.Config(),
		"sortedModels":   models.SortedRootNames(),
		"version":        Version,
		"savedViews":     saved,
	}, nil
}

// clientContext is everything the UI needs to boot on q.
func (h *Handler) clientContext(ctx context.Context, user *security.User, q *query.Query) (map[string]interface{}, error) {
	models := h.modelsFor(user)
	if q.ModelName != "" {
		if err := rootModel(models, q.ModelName); err != nil {
			return nil, err
		}
	}
	bound := query.Bind(q, models)

	config, err := h.config(ctx, user, models)
	if err != nil {
		return nil, err
	}

	var dsn interface{}
	if h.opts.FrontendDSN != "" {
		dsn = h.opts.FrontendDSN
	}
	return map[string]interface{}{
		"config": config,
		"initialState": queryData(bound, map[string]interface{}{
			"results": []orm.Record{},
			"cols":    []orm.Record{},
			"rows":    []orm.Record{},
		}),
		"sentryDsn": dsn,
	}, nil
}

var scriptEscaper = strings.NewReplacer("<", `\u003C`, ">", `\u003E`, "&", `\u0026`)

// escapedJSON encodes v for embedding in a script element.
func escapedJSON(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return scriptEscaper.Replace(strings.TrimSuffix(buf.String(), "\n")), nil
}
