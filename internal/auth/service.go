package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dvillamizar/restopos-backend/internal/repo"
	"github.com/dvillamizar/restopos-backend/internal/store"
	pkgauth "github.com/dvillamizar/restopos-backend/pkg/auth"
	"github.com/dvillamizar/restopos-backend/pkg/config"
	"github.com/dvillamizar/restopos-backend/pkg/db"
	"github.com/dvillamizar/restopos-backend/pkg/db/models"
	"github.com/dvillamizar/restopos-backend/pkg/enums"
	"github.com/dvillamizar/restopos-backend/pkg/errors"
	"github.com/dvillamizar/restopos-backend/pkg/logger"
	"github.com/dvillamizar/restopos-backend/pkg/security"
)

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// Repository exposes the credential reads the auth flow needs.
type Repository interface {
	FindActiveUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindLiveToken(ctx context.Context, signed string) (*models.Token, error)
}

type gormRepository struct {
	repo.Base
}

func NewRepository(conn *gorm.DB) Repository {
	return &gormRepository{Base: repo.NewBase(conn)}
}

func (r *gormRepository) FindActiveUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.DB(ctx).
		Where("username = ? AND deleted = ? AND active = ? AND status = ?",
			username, false, true, enums.RecordStatusActive).
		First(&user).Error
	if err != nil {
		return nil, db.Translate(err, "user not found")
	}
	return &user, nil
}

func (r *gormRepository) FindLiveToken(ctx context.Context, signed string) (*models.Token, error) {
	var token models.Token
	err := r.DB(ctx).
		Where("token = ? AND deleted = ?", signed, false).
		First(&token).Error
	if err != nil {
		return nil, db.Translate(err, "token not found")
	}
	return &token, nil
}

// Service owns login, session validation and revocation. Every minted JWT is
// also persisted as a token row; validation requires both the signature and a
// live, unrevoked, unexpired row, so revocation takes effect immediately.
type Service struct {
	repo Repository
	conn *gorm.DB
	jwt  config.JWTConfig
	now  func() time.Time
	logg *logger.Logger
}

type Params struct {
	Repo   Repository
	Conn   *gorm.DB
	JWT    config.JWTConfig
	Now    func() time.Time
	Logger *logger.Logger
}

func NewService(params Params) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New(errors.CodeInternal, "auth repository is required")
	}
	if params.Conn == nil {
		return nil, errors.New(errors.CodeInternal, "db handle is required")
	}
	if params.Logger == nil {
		return nil, errors.New(errors.CodeInternal, "logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo: params.Repo,
		conn: params.Conn,
		jwt:  params.JWT,
		now:  now,
		logg: params.Logger,
	}, nil
}

// Login verifies the credentials and opens a session. Unknown usernames and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.repo.FindActiveUserByUsername(ctx, username)
	if err != nil {
		if errors.HasCode(err, errors.CodeNotFound) {
			return nil, errors.New(errors.CodeUnauthorized, "invalid credentials")
		}
		return nil, err
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, errors.New(errors.CodeUnauthorized, "invalid credentials")
	}

	now := s.now()
	signed, err := pkgauth.MintAccessToken(s.jwt, now, pkgauth.AccessTokenPayload{
		UserID:   user.ID,
		Username: user.Username,
	})
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "failed to mint access token")
	}

	expiresAt := now.Add(s.jwt.TokenTTL())
	record := &models.Token{
		ID:          uuid.New(),
		UserID:      user.ID,
		Token:       signed,
		StatusToken: true,
		Expiration:  expiresAt,
	}
	if err := store.New[models.Token](s.conn).Create(ctx, record); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user logged in")
	return &Session{Token: signed, ExpiresAt: expiresAt, User: user}, nil
}

// Validate checks a presented token end to end: signature and issuer, a
// live unrevoked row, a future expiration and a live user behind it.
func (s *Service) Validate(ctx context.Context, signed string) (*models.User, error) {
	claims, err := pkgauth.ParseAccessToken(s.jwt, signed)
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnauthorized, err, "invalid token")
	}

	record, err := s.repo.FindLiveToken(ctx, signed)
	if err != nil {
		if errors.HasCode(err, errors.CodeNotFound) {
			return nil, errors.New(errors.CodeUnauthorized, "session not found")
		}
		return nil, err
	}
	if !record.Valid(s.now()) {
		return nil, errors.New(errors.CodeUnauthorized, "session revoked or expired")
	}

	user, err := store.New[models.User](s.conn).Get(ctx, claims.UserID)
	if err != nil {
		if errors.HasCode(err, errors.CodeNotFound) {
			return nil, errors.New(errors.CodeUnauthorized, "user no longer exists")
		}
		return nil, err
	}
	if !user.Active || user.Status != enums.RecordStatusActive {
		return nil, errors.New(errors.CodeUnauthorized, "user is disabled")
	}
	return user, nil
}

// Logout revokes the presented session token.
func (s *Service) Logout(ctx context.Context, signed string) error {
	res := s.conn.WithContext(ctx).
		Model(&models.Token{}).
		Where("token = ? AND deleted = ? AND status_token = ?", signed, false, true).
		Update("status_token", false)
	if res.Error != nil {
		return errors.Wrap(errors.CodeDependency, res.Error, "failed to revoke token")
	}
	if res.RowsAffected == 0 {
		return errors.New(errors.CodeNotFound, "session not found")
	}
	return nil
}

// RevokeUserTokens revokes every live session of one user, used when staff
// are deactivated.
func (s *Service) RevokeUserTokens(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := s.conn.WithContext(ctx).
		Model(&models.Token{}).
		Where("id_user = ? AND deleted = ? AND status_token = ?", userID, false, true).
		Update("status_token", false)
	if res.Error != nil {
		return 0, errors.Wrap(errors.CodeDependency, res.Error, "failed to revoke tokens")
	}
	return res.RowsAffected, nil
}
