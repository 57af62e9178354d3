package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-api/internal/models"
	appErrors "github.com/noah-isme/campus-api/pkg/errors"
)

type permissionRepository interface {
	SeedCatalog(ctx context.Context, catalog []models.Permission) error
	ListCatalog(ctx context.Context) ([]models.Permission, error)
	SeedDefaultSubRoles(ctx context.Context, schoolID string, defaults []models.SubRole) error
	ListSubRoles(ctx context.Context, schoolID string) ([]models.SubRole, error)
	FindSubRoleByKey(ctx context.Context, schoolID, key string) (*models.SubRole, error)
	CreateSubRole(ctx context.Context, subRole *models.SubRole) error
	ListGrantKeys(ctx context.Context, schoolID, subRoleKey string) ([]string, error)
	ReplaceGrants(ctx context.Context, schoolID, subRoleKey string, permissionKeys []string) error
}

type permissionCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// PermissionService resolves whether an actor may perform an action.
// Admins bypass checks within their school; employees consult their
// sub-role grants (cached per school and sub-role); students and
// parents carry fixed allowances.
type PermissionService struct {
	repo      permissionRepository
	cache     permissionCache
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewPermissionService constructs a PermissionService instance.
func NewPermissionService(repo permissionRepository, cache permissionCache, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *PermissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &PermissionService{repo: repo, cache: cache, validator: validate, logger: logger, cacheTTL: cacheTTL}
}

func grantsCacheKey(schoolID, subRoleKey string) string {
	return fmt.Sprintf("permissions:%s:%s", schoolID, subRoleKey)
}

// Seed ensures the permission catalog exists. Insert-missing, safe to
// run on every startup.
func (s *PermissionService) Seed(ctx context.Context) error {
	if err := s.repo.SeedCatalog(ctx, models.PermissionCatalog); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed permission catalog")
	}
	return nil
}

// SeedSchoolDefaults creates the system sub-roles for a school.
func (s *PermissionService) SeedSchoolDefaults(ctx context.Context, schoolID string) error {
	if err := s.repo.SeedDefaultSubRoles(ctx, schoolID, models.DefaultSubRoles); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed default sub-roles")
	}
	return nil
}

// CanPerform resolves the permission check for the given claims.
func (s *PermissionService) CanPerform(ctx context.Context, claims *models.JWTClaims, permissionKey string) (bool, error) {
	if claims == nil {
		return false, nil
	}
	switch claims.Role {
	case models.RoleAdmin:
		return true, nil
	case models.RoleEmployee:
		if claims.SubRole == "" || claims.SchoolID == "" {
			return false, nil
		}
		grants, err := s.resolveGrants(ctx, claims.SchoolID, claims.SubRole)
		if err != nil {
			return false, err
		}
		for _, key := range grants {
			if key == permissionKey {
				return true, nil
			}
		}
		return false, nil
	default:
		return models.RoleAllows(claims.Role, permissionKey), nil
	}
}

func (s *PermissionService) resolveGrants(ctx context.Context, schoolID, subRoleKey string) ([]string, error) {
	cacheKey := grantsCacheKey(schoolID, subRoleKey)
	var cached []string
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("permission cache read failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	grants, err := s.repo.ListGrantKeys(ctx, schoolID, subRoleKey)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load permission grants")
	}
	if grants == nil {
		grants = []string{}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, grants, s.cacheTTL); err != nil {
			s.logger.Warn("permission cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return grants, nil
}

// Catalog returns the canonical permission list.
func (s *PermissionService) Catalog(ctx context.Context) ([]models.Permission, error) {
	catalog, err := s.repo.ListCatalog(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list permission catalog")
	}
	return catalog, nil
}

// ListSubRoles returns the sub-roles of a school.
func (s *PermissionService) ListSubRoles(ctx context.Context, schoolID string) ([]models.SubRole, error) {
	subRoles, err := s.repo.ListSubRoles(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sub-roles")
	}
	return subRoles, nil
}

// CreateSubRoleRequest defines a new custom sub-role.
type CreateSubRoleRequest struct {
	Key  string `json:"key" validate:"required,lowercase,excludesall= "`
	Name string `json:"name" validate:"required"`
}

// CreateSubRole adds a custom sub-role to a school.
func (s *PermissionService) CreateSubRole(ctx context.Context, schoolID string, req CreateSubRoleRequest) (*models.SubRole, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sub-role payload")
	}

	if _, err := s.repo.FindSubRoleByKey(ctx, schoolID, req.Key); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "sub-role key already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check sub-role")
	}

	subRole := &models.SubRole{
		SchoolID: schoolID,
		Key:      req.Key,
		Name:     req.Name,
		IsSystem: false,
	}
	if err := s.repo.CreateSubRole(ctx, subRole); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create sub-role")
	}
	return subRole, nil
}

// ListGrants returns the permission keys granted to a sub-role.
func (s *PermissionService) ListGrants(ctx context.Context, schoolID, subRoleKey string) ([]string, error) {
	if _, err := s.repo.FindSubRoleByKey(ctx, schoolID, subRoleKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sub-role not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sub-role")
	}
	return s.resolveGrants(ctx, schoolID, subRoleKey)
}

// UpdateGrantsRequest replaces a sub-role's permission grants.
type UpdateGrantsRequest struct {
	PermissionKeys []string `json:"permission_keys" validate:"required"`
}

// UpdateGrants replaces the grants of a sub-role and invalidates the
// cached resolution so the change takes effect within one request.
func (s *PermissionService) UpdateGrants(ctx context.Context, schoolID, subRoleKey string, req UpdateGrantsRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grants payload")
	}

	if _, err := s.repo.FindSubRoleByKey(ctx, schoolID, subRoleKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "sub-role not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sub-role")
	}

	catalog, err := s.repo.ListCatalog(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load permission catalog")
	}
	known := make(map[string]struct{}, len(catalog))
	for _, perm := range catalog {
		known[perm.Key] = struct{}{}
	}
	for _, key := range req.PermissionKeys {
		if _, ok := known[key]; !ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown permission key %q", key))
		}
	}

	if err := s.repo.ReplaceGrants(ctx, schoolID, subRoleKey, req.PermissionKeys); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grants")
	}

	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, grantsCacheKey(schoolID, subRoleKey)); err != nil {
			s.logger.Warn("permission cache invalidation failed", zap.String("sub_role", subRoleKey), zap.Error(err))
		}
	}
	return nil
}
