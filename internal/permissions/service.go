package permissions

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dvillamizar/restopos-backend/pkg/errors"
	"github.com/dvillamizar/restopos-backend/pkg/logger"
	"github.com/dvillamizar/restopos-backend/pkg/redis"
)

// Resolver computes the set of view paths a user may open. Both role sources
// contribute: the primary role on the user row and every live attachment in
// user_roles. The union is deduplicated and the result sorted so repeated
// resolutions compare equal.
type Resolver struct {
	repo     Repository
	cache    redis.PermissionCache
	cacheTTL time.Duration
	logg     *logger.Logger
}

type ResolverParams struct {
	Repo     Repository
	Cache    redis.PermissionCache
	CacheTTL time.Duration
	Logger   *logger.Logger
}

func NewResolver(params ResolverParams) (*Resolver, error) {
	if params.Repo == nil {
		return nil, errors.New(errors.CodeInternal, "permissions repository is required")
	}
	if params.Logger == nil {
		return nil, errors.New(errors.CodeInternal, "logger is required")
	}
	return &Resolver{
		repo:     params.Repo,
		cache:    params.Cache,
		cacheTTL: params.CacheTTL,
		logg:     params.Logger,
	}, nil
}

// Resolve returns the sorted view paths granted to the user. A user with no
// roles, or whose roles hold no enabled grants, resolves to an empty set.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) ([]string, error) {
	if cached, ok := r.fromCache(ctx, userID); ok {
		return cached, nil
	}

	user, err := r.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	linked, err := r.repo.ListLinkedRoleIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	roleIDs := make([]uuid.UUID, 0, len(linked)+1)
	seen := make(map[uuid.UUID]struct{}, len(linked)+1)
	if user.RoleID != nil {
		roleIDs = append(roleIDs, *user.RoleID)
		seen[*user.RoleID] = struct{}{}
	}
	for _, id := range linked {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		roleIDs = append(roleIDs, id)
	}

	paths, err := r.repo.ListGrantedPaths(ctx, roleIDs)
	if err != nil {
		return nil, err
	}
	if paths == nil {
		paths = []string{}
	}
	sort.Strings(paths)

	r.toCache(ctx, userID, paths)
	return paths, nil
}

// Invalidate drops the cached permission set after any change to the user's
// roles or the authorization matrix.
func (r *Resolver) Invalidate(ctx context.Context, userID uuid.UUID) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Del(ctx, r.cache.PermissionsKey(userID.String())); err != nil {
		r.logg.Warn(r.logg.WithUserID(ctx, userID.String()), "failed to invalidate permission cache")
	}
}

func (r *Resolver) fromCache(ctx context.Context, userID uuid.UUID) ([]string, bool) {
	if r.cache == nil {
		return nil, false
	}
	raw, err := r.cache.Get(ctx, r.cache.PermissionsKey(userID.String()))
	if err != nil {
		if err != redis.Nil {
			r.logg.Warn(r.logg.WithUserID(ctx, userID.String()), "permission cache read failed")
		}
		return nil, false
	}
	var paths []string
	if err := json.Unmarshal([]byte(raw), &paths); err != nil {
		return nil, false
	}
	return paths, true
}

func (r *Resolver) toCache(ctx context.Context, userID uuid.UUID, paths []string) {
	if r.cache == nil {
		return
	}
	payload, err := json.Marshal(paths)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, r.cache.PermissionsKey(userID.String()), payload, r.cacheTTL); err != nil {
		r.logg.Warn(r.logg.WithUserID(ctx, userID.String()), "permission cache write failed")
	}
}
