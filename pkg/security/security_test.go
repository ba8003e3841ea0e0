package security

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bitechdev/DataBrowser/pkg/common/adapters/database"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlog "gorm.io/gorm/logger"
)

var testSecret = []byte("test-secret")

func setupUsers(t *testing.T) *UserStore {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlog.Default.LogMode(gormlog.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&User{}))
	return NewUserStore(database.NewGormAdapter(db))
}

func TestHasPerm(t *testing.T) {
	tests := []struct {
		name string
		user *User
		perm string
		want bool
	}{
		{name: "nil", user: nil, perm: "tests.view_product", want: false},
		{name: "inactive superuser", user: &User{IsSuper: true}, perm: "tests.view_product", want: false},
		{name: "superuser", user: &User{IsActive: true, IsSuper: true}, perm: "anything", want: true},
		{name: "granted", user: &User{IsActive: true, Permissions: "tests.view_address, tests.view_product"}, perm: "tests.view_product", want: true},
		{name: "missing", user: &User{IsActive: true, Permissions: "tests.view_address"}, perm: "tests.view_product", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.HasPerm(tt.perm))
		})
	}
}

func TestUserStore(t *testing.T) {
	store := setupUsers(t)
	ctx := context.Background()

	user := &User{Username: "alice", IsActive: true, IsStaff: true}
	require.NoError(t, store.Create(ctx, user))
	assert.NotZero(t, user.ID)
	assert.False(t, user.DateJoined.IsZero())

	loaded, err := store.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loaded.ID)
	assert.True(t, loaded.IsStaff)

	loaded.IsStaff = false
	loaded.Permissions = "tests.view_product"
	require.NoError(t, store.Update(ctx, loaded))

	again, err := store.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, again.IsStaff)
	assert.True(t, again.HasPerm("tests.view_product"))

	_, err = store.Get(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestTokens(t *testing.T) {
	user := &User{ID: 7, Username: "alice"}

	token, err := NewToken(testSecret, "databrowser", user, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(token, testSecret, "databrowser")
	require.NoError(t, err)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, "alice", claims.Username)

	_, err = ValidateToken(token, []byte("other"), "databrowser")
	assert.Error(t, err)

	_, err = ValidateToken(token, testSecret, "someone-else")
	assert.Error(t, err)

	expired, err := NewToken(testSecret, "", user, -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken(expired, testSecret, "")
	assert.Error(t, err)

	_, err = NewToken(nil, "", user, time.Hour)
	assert.Error(t, err)
}

func serveWithAuth(auth AuthenticateFunc, req *http.Request) *httptest.ResponseRecorder {
	handler := AuthMiddleware(auth)(RequireStaff(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := GetUser(r.Context())
		_, _ = w.Write([]byte(user.Username))
	})))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthenticator(t *testing.T) {
	store := setupUsers(t)
	ctx := context.Background()

	staff := &User{Username: "staff", IsActive: true, IsStaff: true}
	require.NoError(t, store.Create(ctx, staff))
	plain := &User{Username: "plain", IsActive: true}
	require.NoError(t, store.Create(ctx, plain))

	auth := JWTAuthenticator(testSecret, "databrowser", store)

	staffToken, err := NewToken(testSecret, "databrowser", staff, time.Hour)
	require.NoError(t, err)
	plainToken, err := NewToken(testSecret, "databrowser", plain, time.Hour)
	require.NoError(t, err)

	t.Run("anonymous", func(t *testing.T) {
		rec := serveWithAuth(auth, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bad token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nonsense")
		assert.Equal(t, http.StatusUnauthorized, serveWithAuth(auth, req).Code)
	})

	t.Run("not staff", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+plainToken)
		assert.Equal(t, http.StatusForbidden, serveWithAuth(auth, req).Code)
	})

	t.Run("staff header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+staffToken)
		rec := serveWithAuth(auth, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "staff", rec.Body.String())
	})

	t.Run("staff cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: TokenCookie, Value: staffToken})
		assert.Equal(t, http.StatusOK, serveWithAuth(auth, req).Code)
	})
}

func TestGetUserID(t *testing.T) {
	_, ok := GetUserID(context.Background())
	assert.False(t, ok)

	id, ok := GetUserID(WithUser(context.Background(), &User{ID: 3}))
	assert.True(t, ok)
	assert.Equal(t, int64(3), id)
}
