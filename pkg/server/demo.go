package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitechdev/DataBrowser/pkg/common"
	"github.com/bitechdev/DataBrowser/pkg/modelregistry"
	"github.com/bitechdev/DataBrowser/pkg/security"
	"github.com/bitechdev/DataBrowser/pkg/testmodels"
	"github.com/bitechdev/DataBrowser/pkg/views"
)

// DemoAdmin is the superuser SeedDemo creates.
const DemoAdmin = "admin"

// RegisterDemoModels adds the product demo schema to registry.
func RegisterDemoModels(registry *modelregistry.DefaultModelRegistry) {
	testmodels.RegisterTestModels(registry)
}

// SeedDemo migrates the tables and fills them with demo products, an admin
// superuser and a public pivot view, all in one transaction. A database that
// already has the admin user is left alone.
func (a *App) SeedDemo(ctx context.Context) (*security.User, *views.View, error) {
	if err := a.Migrate(ctx); err != nil {
		return nil, nil, err
	}

	var admin *security.User
	var view *views.View
	err := a.DB.RunInTransaction(ctx, func(tx common.Database) error {
		users := security.NewUserStore(tx)
		existing, err := users.GetByUsername(ctx, DemoAdmin)
		if err == nil {
			admin = existing
			return nil
		}
		if !errors.Is(err, security.ErrUserNotFound) {
			return err
		}

		if err := testmodels.SeedProducts(ctx, tx); err != nil {
			return err
		}
		if err := testmodels.SeedPivotProducts(ctx, tx); err != nil {
			return err
		}

		admin = &security.User{Username: DemoAdmin, IsActive: true, IsStaff: true, IsSuper: true}
		if err := users.Create(ctx, admin); err != nil {
			return err
		}

		view = &views.View{
			Name:        "Products by month",
			OwnerID:     admin.ID,
			Public:      true,
			ModelName:   "tests.Product",
			Fields:      "created_time__year+0,&created_time__month+1,id__count",
			Description: "Demo pivot",
		}
		return views.NewStore(tx).Create(ctx, view)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("seed demo data: %w", err)
	}
	return admin, view, nil
}
