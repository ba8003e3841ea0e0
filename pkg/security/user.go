package security

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bitechdev/DataBrowser/pkg/common"
	"github.com/uptrace/bun"
)

// ErrUserNotFound is returned when no user matches.
var ErrUserNotFound = errors.New("user not found")

// User is an account that can browse data and own saved views.
type User struct {
	bun.BaseModel `bun:"table:auth_user" gorm:"-" json:"-"`

	ID          int64     `json:"id" bun:"id,pk,autoincrement" gorm:"column:id;primaryKey;autoIncrement"`
	Username    string    `json:"username" bun:"username,unique" gorm:"column:username;uniqueIndex"`
	IsActive    bool      `json:"is_active" bun:"is_active" gorm:"column:is_active"`
	IsStaff     bool      `json:"is_staff" bun:"is_staff" gorm:"column:is_staff"`
	IsSuper     bool      `json:"is_superuser" bun:"is_superuser" gorm:"column:is_superuser"`
	Permissions string    `json:"permissions" bun:"permissions" gorm:"column:permissions"`
	DateJoined  time.Time `json:"date_joined" bun:"date_joined" gorm:"column:date_joined"`
}

func (User) TableName() string {
	return "auth_user"
}

// IsSuperuser reports whether the user bypasses permission checks.
func (u *User) IsSuperuser() bool {
	return u != nil && u.IsSuper
}

// ActiveStaff reports whether the user may use the data browser at all.
func (u *User) ActiveStaff() bool {
	return u != nil && u.IsActive && u.IsStaff
}

// HasPerm checks a "<app>.<codename>" permission. Inactive users have none
// and active superusers have all.
func (u *User) HasPerm(perm string) bool {
	if u == nil || !u.IsActive {
		return false
	}
	if u.IsSuper {
		return true
	}
	for _, p := range strings.Split(u.Permissions, ",") {
		if strings.TrimSpace(p) == perm {
			return true
		}
	}
	return false
}

// UserStore loads and saves users.
type UserStore struct {
	db common.Database
}

func NewUserStore(db common.Database) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) get(ctx context.Context, where string, arg interface{}) (*User, error) {
	var user User
	err := s.db.NewSelect().Model(&user).Where(where, arg).Limit(1).Scan(ctx, &user)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && user.ID == 0) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

// Get loads a user by id.
func (s *UserStore) Get(ctx context.Context, id int64) (*User, error) {
	return s.get(ctx, "id = ?", id)
}

// GetByUsername loads a user by username.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.get(ctx, "username = ?", username)
}

// Create inserts user and fills in its id.
func (s *UserStore) Create(ctx context.Context, user *User) error {
	if user.DateJoined.IsZero() {
		user.DateJoined = time.Now().UTC()
	}
	if _, err := s.db.NewInsert().Model(user).Exec(ctx); err != nil {
		return fmt.Errorf("create user %s: %w", user.Username, err)
	}
	return nil
}

// Update saves the flags and permissions of user.
func (s *UserStore) Update(ctx context.Context, user *User) error {
	_, err := s.db.NewUpdate().Model(user).SetMap(map[string]interface{}{
		"is_active":    user.IsActive,
		"is_staff":     user.IsStaff,
		"is_superuser": user.IsSuper,
		"permissions":  user.Permissions,
	}).Where("id = ?", user.ID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("update user %s: %w", user.Username, err)
	}
	return nil
}
