package auth

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dvillamizar/restopos-backend/internal/testdb"
	"github.com/dvillamizar/restopos-backend/pkg/config"
	"github.com/dvillamizar/restopos-backend/pkg/db/models"
	"github.com/dvillamizar/restopos-backend/pkg/enums"
	"github.com/dvillamizar/restopos-backend/pkg/errors"
	"github.com/dvillamizar/restopos-backend/pkg/logger"
	"github.com/dvillamizar/restopos-backend/pkg/security"
)

func testJWT() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "restopos", ExpirationMinutes: 30}
}

func newService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	conn := testdb.Open(t)
	svc, err := NewService(Params{
		Repo:   NewRepository(conn),
		Conn:   conn,
		JWT:    testJWT(),
		Logger: logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
	})
	require.NoError(t, err)
	return svc, conn
}

func seedUser(t *testing.T, conn *gorm.DB, password string) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{
		ArgonMemoryKB: 8 * 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32,
	})
	require.NoError(t, err)
	user := models.User{
		ID: uuid.New(), Name: "Ana", Username: "ana", PasswordHash: hash,
		Email: "ana@resto.co", Active: true, Status: enums.RecordStatusActive,
	}
	require.NoError(t, conn.Create(&user).Error)
	return &user
}

func TestLogin_MintsAndPersistsToken(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)
	user := seedUser(t, conn, "s3cret-pass")

	session, err := svc.Login(ctx, "ana", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, user.ID, session.User.ID)

	var record models.Token
	require.NoError(t, conn.First(&record, "id_user = ?", user.ID).Error)
	assert.Equal(t, session.Token, record.Token)
	assert.True(t, record.StatusToken)
}

func TestLogin_WrongPasswordAndUnknownUserLookAlike(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)
	seedUser(t, conn, "s3cret-pass")

	_, badPass := svc.Login(ctx, "ana", "wrong-pass")
	_, badUser := svc.Login(ctx, "nadie", "s3cret-pass")

	assert.True(t, errors.HasCode(badPass, errors.CodeUnauthorized))
	assert.True(t, errors.HasCode(badUser, errors.CodeUnauthorized))
	assert.Equal(t, badPass.Error(), badUser.Error())
}

func TestLogin_InactiveUserRejected(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)
	user := seedUser(t, conn, "s3cret-pass")
	require.NoError(t, conn.Model(&models.User{}).Where("id = ?", user.ID).Update("active", false).Error)

	_, err := svc.Login(ctx, "ana", "s3cret-pass")
	assert.True(t, errors.HasCode(err, errors.CodeUnauthorized))
}

func TestValidate_AcceptsFreshSession(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)
	user := seedUser(t, conn, "s3cret-pass")

	session, err := svc.Login(ctx, "ana", "s3cret-pass")
	require.NoError(t, err)

	got, err := svc.Validate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestValidate_RevokedSessionRejected(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)
	seedUser(t, conn, "s3cret-pass")

	session, err := svc.Login(ctx, "ana", "s3cret-pass")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, session.Token))

	_, err = svc.Validate(ctx, session.Token)
	assert.True(t, errors.HasCode(err, errors.CodeUnauthorized))
}

func TestValidate_GarbageTokenRejected(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Validate(context.Background(), "not-a-jwt")
	assert.True(t, errors.HasCode(err, errors.CodeUnauthorized))
}

func TestValidate_DeletedUserRejected(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)
	user := seedUser(t, conn, "s3cret-pass")

	session, err := svc.Login(ctx, "ana", "s3cret-pass")
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.User{}).Where("id = ?", user.ID).Update("deleted", true).Error)

	_, err = svc.Validate(ctx, session.Token)
	assert.True(t, errors.HasCode(err, errors.CodeUnauthorized))
}

func TestValidate_ExpiredRowRejected(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)
	seedUser(t, conn, "s3cret-pass")

	session, err := svc.Login(ctx, "ana", "s3cret-pass")
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.Token{}).Where("token = ?", session.Token).
		Update("expiration", time.Now().Add(-time.Minute)).Error)

	_, err = svc.Validate(ctx, session.Token)
	assert.True(t, errors.HasCode(err, errors.CodeUnauthorized))
}

func TestRevokeUserTokens_KillsEverySession(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)
	user := seedUser(t, conn, "s3cret-pass")

	first, err := svc.Login(ctx, "ana", "s3cret-pass")
	require.NoError(t, err)
	second, err := svc.Login(ctx, "ana", "s3cret-pass")
	require.NoError(t, err)

	revoked, err := svc.RevokeUserTokens(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, revoked)

	_, err = svc.Validate(ctx, first.Token)
	assert.True(t, errors.HasCode(err, errors.CodeUnauthorized))
	_, err = svc.Validate(ctx, second.Token)
	assert.True(t, errors.HasCode(err, errors.CodeUnauthorized))
}

func TestLogout_UnknownTokenNotFound(t *testing.T) {
	svc, _ := newService(t)

	err := svc.Logout(context.Background(), "missing")
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
}
