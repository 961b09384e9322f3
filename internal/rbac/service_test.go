package rbac

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dvillamizar/restopos-backend/internal/integrity"
	"github.com/dvillamizar/restopos-backend/internal/permissions"
	"github.com/dvillamizar/restopos-backend/internal/testdb"
	"github.com/dvillamizar/restopos-backend/pkg/db/models"
	"github.com/dvillamizar/restopos-backend/pkg/enums"
	"github.com/dvillamizar/restopos-backend/pkg/errors"
	"github.com/dvillamizar/restopos-backend/pkg/logger"
)

func newService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	conn := testdb.Open(t)
	guard, err := integrity.NewGuard(conn, nil)
	require.NoError(t, err)
	svc, err := NewService(Params{
		Tx:     testdb.Runner{DB: conn},
		Conn:   conn,
		Guard:  guard,
		Logger: logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
	})
	require.NoError(t, err)
	return svc, conn
}

func newResolver(t *testing.T, conn *gorm.DB) *permissions.Resolver {
	t.Helper()
	resolver, err := permissions.NewResolver(permissions.ResolverParams{
		Repo:   permissions.NewRepository(conn),
		Logger: logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
	})
	require.NoError(t, err)
	return resolver
}

func TestSetGrant_CreateThenFlip(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)

	role, err := svc.CreateRole(ctx, "mesero")
	require.NoError(t, err)
	view, err := svc.CreateView(ctx, ViewInput{Name: "tables", Path: "/tables"})
	require.NoError(t, err)

	require.NoError(t, svc.SetGrant(ctx, role.ID, view.ID, true))

	var link models.RoleViewLink
	require.NoError(t, conn.First(&link, "id_role = ? AND id_view = ?", role.ID, view.ID).Error)
	assert.True(t, link.Enabled)

	require.NoError(t, svc.SetGrant(ctx, role.ID, view.ID, false))
	require.NoError(t, conn.First(&link, "id_role = ? AND id_view = ?", role.ID, view.ID).Error)
	assert.False(t, link.Enabled)
	assert.Equal(t, 2, link.Version)
}

func TestSetGrant_DanglingEndpointsRejected(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	role, err := svc.CreateRole(ctx, "mesero")
	require.NoError(t, err)

	err = svc.SetGrant(ctx, role.ID, uuid.New(), true)
	assert.True(t, errors.HasCode(err, errors.CodeDanglingReference))
}

func TestCreateView_PathMustBeRooted(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.CreateView(context.Background(), ViewInput{Name: "tables", Path: "tables"})
	assert.True(t, errors.HasCode(err, errors.CodeValidation))
}

func TestDeleteRole_CascadesAndStopsResolving(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)
	resolver := newResolver(t, conn)

	role, err := svc.CreateRole(ctx, "mesero")
	require.NoError(t, err)
	view, err := svc.CreateView(ctx, ViewInput{Name: "tables", Path: "/tables"})
	require.NoError(t, err)
	require.NoError(t, svc.SetGrant(ctx, role.ID, view.ID, true))

	user := models.User{
		ID: uuid.New(), Name: "Ana", Username: "ana", PasswordHash: "x",
		Email: "ana@resto.co", RoleID: &role.ID, Active: true, Status: enums.RecordStatusActive,
	}
	require.NoError(t, conn.Create(&user).Error)

	paths, err := resolver.Resolve(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"/tables"}, paths)

	require.NoError(t, svc.DeleteRole(ctx, role.ID))

	var link models.RoleViewLink
	require.NoError(t, conn.First(&link, "id_role = ?", role.ID).Error)
	assert.True(t, link.Deleted)

	paths, err = resolver.Resolve(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestDeleteView_CascadesGrants(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)

	role, err := svc.CreateRole(ctx, "mesero")
	require.NoError(t, err)
	view, err := svc.CreateView(ctx, ViewInput{Name: "tables", Path: "/tables"})
	require.NoError(t, err)
	require.NoError(t, svc.SetGrant(ctx, role.ID, view.ID, true))

	require.NoError(t, svc.DeleteView(ctx, view.ID))

	var link models.RoleViewLink
	require.NoError(t, conn.First(&link, "id_view = ?", view.ID).Error)
	assert.True(t, link.Deleted)
}

func TestDeactivateRole_GrantsStopResolvingButSurvive(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)
	resolver := newResolver(t, conn)

	role, err := svc.CreateRole(ctx, "mesero")
	require.NoError(t, err)
	view, err := svc.CreateView(ctx, ViewInput{Name: "tables", Path: "/tables"})
	require.NoError(t, err)
	require.NoError(t, svc.SetGrant(ctx, role.ID, view.ID, true))

	user := models.User{
		ID: uuid.New(), Name: "Ana", Username: "ana", PasswordHash: "x",
		Email: "ana@resto.co", RoleID: &role.ID, Active: true, Status: enums.RecordStatusActive,
	}
	require.NoError(t, conn.Create(&user).Error)

	deactivated, err := svc.DeactivateRole(ctx, role.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RecordStatusInactive, deactivated.Status)

	paths, err := resolver.Resolve(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, paths)

	var link models.RoleViewLink
	require.NoError(t, conn.First(&link, "id_role = ?", role.ID).Error)
	assert.False(t, link.Deleted)
}
