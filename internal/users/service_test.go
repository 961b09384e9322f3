package users

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dvillamizar/restopos-backend/internal/integrity"
	"github.com/dvillamizar/restopos-backend/internal/testdb"
	"github.com/dvillamizar/restopos-backend/pkg/config"
	"github.com/dvillamizar/restopos-backend/pkg/db/models"
	"github.com/dvillamizar/restopos-backend/pkg/errors"
	"github.com/dvillamizar/restopos-backend/pkg/logger"
	"github.com/dvillamizar/restopos-backend/pkg/security"
)

func fastArgon() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8 * 1024,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func newService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	conn := testdb.Open(t)
	guard, err := integrity.NewGuard(conn, nil)
	require.NoError(t, err)
	svc, err := NewService(Params{
		Tx:       testdb.Runner{DB: conn},
		Conn:     conn,
		Guard:    guard,
		Password: fastArgon(),
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
	})
	require.NoError(t, err)
	return svc, conn
}

func validInput() CreateInput {
	return CreateInput{
		Name:     "Ana Gomez",
		Username: "agomez",
		Email:    "ana@resto.co",
		Password: "s3cret-pass",
	}
}

func TestCreate_HashesPassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	user, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)

	ok, err := security.VerifyPassword("s3cret-pass", user.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreate_RejectsBadEmail(t *testing.T) {
	svc, _ := newService(t)
	input := validInput()
	input.Email = "not-an-email"

	_, err := svc.Create(context.Background(), input)
	assert.True(t, errors.HasCode(err, errors.CodeValidation))
}

func TestCreate_RejectsDanglingRole(t *testing.T) {
	svc, _ := newService(t)
	ghost := uuid.New()
	input := validInput()
	input.RoleID = &ghost

	_, err := svc.Create(context.Background(), input)
	assert.True(t, errors.HasCode(err, errors.CodeDanglingReference))
}

func TestAttachRole_RequiresLiveEndpoints(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)

	user, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	err = svc.AttachRole(ctx, user.ID, uuid.New())
	assert.True(t, errors.HasCode(err, errors.CodeDanglingReference))

	role := models.Role{ID: uuid.New(), Name: "cajero"}
	require.NoError(t, conn.Create(&role).Error)
	require.NoError(t, svc.AttachRole(ctx, user.ID, role.ID))
}

func TestDetachRole_TombstonesLink(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)

	user, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	role := models.Role{ID: uuid.New(), Name: "cajero"}
	require.NoError(t, conn.Create(&role).Error)
	require.NoError(t, svc.AttachRole(ctx, user.ID, role.ID))

	require.NoError(t, svc.DetachRole(ctx, user.ID, role.ID))

	err = svc.DetachRole(ctx, user.ID, role.ID)
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
}

func TestAttachRole_AfterDetachRevivesLink(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)

	user, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	role := models.Role{ID: uuid.New(), Name: "cajero"}
	require.NoError(t, conn.Create(&role).Error)

	require.NoError(t, svc.AttachRole(ctx, user.ID, role.ID))
	require.NoError(t, svc.DetachRole(ctx, user.ID, role.ID))
	require.NoError(t, svc.AttachRole(ctx, user.ID, role.ID))

	var link models.UserRoleLink
	require.NoError(t, conn.First(&link, "id_user = ? AND id_role = ?", user.ID, role.ID).Error)
	assert.False(t, link.Deleted)
	assert.Nil(t, link.DeletedOn)

	// Attaching again is a quiet no-op.
	require.NoError(t, svc.AttachRole(ctx, user.ID, role.ID))
}

func TestDelete_CascadesToTokensAndRoleLinks(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)

	user, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	role := models.Role{ID: uuid.New(), Name: "cajero"}
	require.NoError(t, conn.Create(&role).Error)
	require.NoError(t, svc.AttachRole(ctx, user.ID, role.ID))
	token := models.Token{ID: uuid.New(), UserID: user.ID, Token: "jwt", StatusToken: true, Expiration: time.Now().Add(time.Hour)}
	require.NoError(t, conn.Create(&token).Error)

	order := models.Order{ID: uuid.New(), TableID: uuid.New(), CreatedByUserID: user.ID}
	require.NoError(t, conn.Create(&order).Error)

	require.NoError(t, svc.Delete(ctx, user.ID))

	_, err = svc.Get(ctx, user.ID)
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))

	var reloadedToken models.Token
	require.NoError(t, conn.First(&reloadedToken, "id = ?", token.ID).Error)
	assert.True(t, reloadedToken.Deleted)

	var link models.UserRoleLink
	require.NoError(t, conn.First(&link, "id_user = ?", user.ID).Error)
	assert.True(t, link.Deleted)

	var survivingOrder models.Order
	require.NoError(t, conn.First(&survivingOrder, "id = ?", order.ID).Error)
	assert.False(t, survivingOrder.Deleted)
	assert.Equal(t, user.ID, survivingOrder.CreatedByUserID)
}

func TestUpdate_ChangesRoleWithVersionGuard(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)

	user, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	role := models.Role{ID: uuid.New(), Name: "cajero"}
	require.NoError(t, conn.Create(&role).Error)

	updated, err := svc.Update(ctx, user.ID, UpdateInput{RoleID: &role.ID})
	require.NoError(t, err)
	require.NotNil(t, updated.RoleID)
	assert.Equal(t, role.ID, *updated.RoleID)
	assert.Equal(t, 2, updated.Version)
}
