// Package views stores saved queries and decides who may see them.
package views

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bitechdev/DataBrowser/pkg/common"
	"github.com/bitechdev/DataBrowser/pkg/query"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var (
	// ErrNotFound is returned for missing views and for views the caller
	// may not see.
	ErrNotFound = errors.New("view not found")
	// ErrForbidden is returned when a change needs a permission the caller lacks.
	ErrForbidden = errors.New("forbidden")
)

// MakePublicPerm is required to share a view publicly.
const MakePublicPerm = "data_browser.make_view_public"

// View is a saved, named query.
type View struct {
	bun.BaseModel `bun:"table:data_browser_view" gorm:"-" json:"-"`

	ID          int64     `json:"id" bun:"id,pk,autoincrement" gorm:"column:id;primaryKey;autoIncrement"`
	Name        string    `json:"name" bun:"name" gorm:"column:name"`
	OwnerID     int64     `json:"ownerId" bun:"owner_id" gorm:"column:owner_id;index"`
	Public      bool      `json:"public" bun:"public" gorm:"column:public"`
	PublicSlug  string    `json:"publicSlug" bun:"public_slug,unique" gorm:"column:public_slug;uniqueIndex"`
	Description string    `json:"description" bun:"description" gorm:"column:description"`
	ModelName   string    `json:"model" bun:"model_name" gorm:"column:model_name"`
	Fields      string    `json:"fields" bun:"fields" gorm:"column:fields"`
	Query       string    `json:"query" bun:"query" gorm:"column:query"`
	CreatedTime time.Time `json:"createdTime" bun:"created_time" gorm:"column:created_time"`
	UpdatedTime time.Time `json:"updatedTime" bun:"updated_time" gorm:"column:updated_time"`
}

func (View) TableName() string {
	return "data_browser_view"
}

// GetQuery rebuilds the saved query.
func (v *View) GetQuery(defaultLimit int) *query.Query {
	return query.FromRequest(v.ModelName, v.Fields, v.Query, defaultLimit)
}

// Owner is what CanServePublicly needs to know about a view's owner.
type Owner interface {
	ActiveStaff() bool
	HasPerm(perm string) bool
}

// CanServePublicly reports whether v may be served without authentication.
// Every condition must hold: the global allowPublic flag, the view's public
// flag, and an active staff owner holding MakePublicPerm.
func CanServePublicly(v *View, owner Owner, allowPublic bool) bool {
	if !allowPublic || v == nil || !v.Public || owner == nil {
		return false
	}
	return owner.ActiveStaff() && owner.HasPerm(MakePublicPerm)
}

// Store persists views.
type Store struct {
	db common.Database
}

func NewStore(db common.Database) *Store {
	return &Store{db: db}
}

func (s *Store) first(ctx context.Context, where string, arg interface{}) (*View, error) {
	var v View
	err := s.db.NewSelect().Model(&v).Where(where, arg).Limit(1).Scan(ctx, &v)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && v.ID == 0) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load view: %w", err)
	}
	return &v, nil
}

// Page bounds a listing. Offset only applies together with a positive Limit.
type Page struct {
	Limit  int
	Offset int
}

// List returns one page of the views owned by ownerID, ordered by name, and
// the number of views the owner has in total.
func (s *Store) List(ctx context.Context, ownerID int64, page Page) ([]View, int, error) {
	total, err := s.db.NewSelect().Model(&View{}).Where("owner_id = ?", ownerID).Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count views: %w", err)
	}

	result := []View{}
	q := s.db.NewSelect().Model(&result).Where("owner_id = ?", ownerID).Order("name ASC").Order("id ASC")
	if page.Limit > 0 {
		q = q.Limit(page.Limit)
		if page.Offset > 0 {
			q = q.Offset(page.Offset)
		}
	}
	if err := q.Scan(ctx, &result); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("list views: %w", err)
	}
	return result, total, nil
}

// Get loads a view by id.
func (s *Store) Get(ctx context.Context, id int64) (*View, error) {
	return s.first(ctx, "id = ?", id)
}

// GetPublic loads a view by its public slug. It does not check visibility;
// see CanServePublicly.
func (s *Store) GetPublic(ctx context.Context, slug string) (*View, error) {
	if _, err := uuid.Parse(slug); err != nil {
		return nil, ErrNotFound
	}
	return s.first(ctx, "public_slug = ?", slug)
}

// Create inserts v, giving it a fresh public slug and timestamps.
func (s *Store) Create(ctx context.Context, v *View) error {
	now := time.Now().UTC()
	v.PublicSlug = uuid.NewString()
	v.CreatedTime = now
	v.UpdatedTime = now
	if _, err := s.db.NewInsert().Model(v).Exec(ctx); err != nil {
		return fmt.Errorf("create view %q: %w", v.Name, err)
	}
	return nil
}

// Update saves the editable columns of v.
func (s *Store) Update(ctx context.Context, v *View) error {
	v.UpdatedTime = time.Now().UTC()
	_, err := s.db.NewUpdate().Model(v).SetMap(map[string]interface{}{
		"name":         v.Name,
		"public":       v.Public,
		"description":  v.Description,
		"model_name":   v.ModelName,
		"fields":       v.Fields,
		"query":        v.Query,
		"updated_time": v.UpdatedTime,
	}).Where("id = ?", v.ID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("update view %d: %w", v.ID, err)
	}
	return nil
}

// Delete removes the view with the given id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model(&View{}).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete view %d: %w", id, err)
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
