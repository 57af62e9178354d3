package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-api/internal/models"
	appErrors "github.com/noah-isme/campus-api/pkg/errors"
)

type permissionRepoStub struct {
	catalog    []models.Permission
	subRoles   map[string]*models.SubRole
	grants     map[string][]string
	grantCalls int
	created    []*models.SubRole
	replaced   map[string][]string
}

func (s *permissionRepoStub) SeedCatalog(ctx context.Context, catalog []models.Permission) error {
	s.catalog = catalog
	return nil
}

func (s *permissionRepoStub) ListCatalog(ctx context.Context) ([]models.Permission, error) {
	return s.catalog, nil
}

func (s *permissionRepoStub) SeedDefaultSubRoles(ctx context.Context, schoolID string, defaults []models.SubRole) error {
	return nil
}

func (s *permissionRepoStub) ListSubRoles(ctx context.Context, schoolID string) ([]models.SubRole, error) {
	var out []models.SubRole
	for _, sr := range s.subRoles {
		out = append(out, *sr)
	}
	return out, nil
}

func (s *permissionRepoStub) FindSubRoleByKey(ctx context.Context, schoolID, key string) (*models.SubRole, error) {
	if sr, ok := s.subRoles[key]; ok {
		return sr, nil
	}
	return nil, sql.ErrNoRows
}

func (s *permissionRepoStub) CreateSubRole(ctx context.Context, subRole *models.SubRole) error {
	s.created = append(s.created, subRole)
	return nil
}

func (s *permissionRepoStub) ListGrantKeys(ctx context.Context, schoolID, subRoleKey string) ([]string, error) {
	s.grantCalls++
	return s.grants[subRoleKey], nil
}

func (s *permissionRepoStub) ReplaceGrants(ctx context.Context, schoolID, subRoleKey string, permissionKeys []string) error {
	if s.replaced == nil {
		s.replaced = map[string][]string{}
	}
	s.replaced[subRoleKey] = permissionKeys
	return nil
}

type cacheStub struct {
	store   map[string][]byte
	deleted []string
}

func newCacheStub() *cacheStub {
	return &cacheStub{store: map[string][]byte{}}
}

func (c *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.store[key] = raw
	return nil
}

func (c *cacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	c.deleted = append(c.deleted, pattern)
	for key := range c.store {
		delete(c.store, key)
	}
	return nil
}

func TestCanPerformAdminBypass(t *testing.T) {
	svc := NewPermissionService(&permissionRepoStub{}, newCacheStub(), nil, nil, 0)

	allowed, err := svc.CanPerform(context.Background(), &models.JWTClaims{UserID: "u-1", Role: models.RoleAdmin, SchoolID: "sch-1"}, models.PermManageFinance)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCanPerformEmployeeGrants(t *testing.T) {
	repo := &permissionRepoStub{grants: map[string][]string{
		"teacher": {models.PermManageAttendance, models.PermManageAssignments},
	}}
	svc := NewPermissionService(repo, newCacheStub(), nil, nil, 0)
	claims := &models.JWTClaims{UserID: "u-1", Role: models.RoleEmployee, SubRole: "teacher", SchoolID: "sch-1"}

	allowed, err := svc.CanPerform(context.Background(), claims, models.PermManageAttendance)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = svc.CanPerform(context.Background(), claims, models.PermManageFinance)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Second lookup is served from cache.
	assert.Equal(t, 1, repo.grantCalls)
}

func TestCanPerformEmployeeWithoutSubRole(t *testing.T) {
	svc := NewPermissionService(&permissionRepoStub{}, newCacheStub(), nil, nil, 0)

	allowed, err := svc.CanPerform(context.Background(), &models.JWTClaims{UserID: "u-1", Role: models.RoleEmployee, SchoolID: "sch-1"}, models.PermManageAttendance)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestCanPerformStudentFixedMap(t *testing.T) {
	svc := NewPermissionService(&permissionRepoStub{}, newCacheStub(), nil, nil, 0)
	claims := &models.JWTClaims{UserID: "u-1", Role: models.RoleStudent, SchoolID: "sch-1"}

	allowed, err := svc.CanPerform(context.Background(), claims, models.PermSubmitAssignment)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = svc.CanPerform(context.Background(), claims, models.PermManageAttendance)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestCanPerformParentFixedMap(t *testing.T) {
	svc := NewPermissionService(&permissionRepoStub{}, newCacheStub(), nil, nil, 0)
	claims := &models.JWTClaims{UserID: "u-1", Role: models.RoleParent, SchoolID: "sch-1"}

	allowed, err := svc.CanPerform(context.Background(), claims, models.PermViewChildAttendance)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = svc.CanPerform(context.Background(), claims, models.PermSubmitAssignment)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestUpdateGrantsRejectsUnknownKey(t *testing.T) {
	repo := &permissionRepoStub{
		catalog:  models.PermissionCatalog,
		subRoles: map[string]*models.SubRole{"teacher": {Key: "teacher", SchoolID: "sch-1"}},
	}
	svc := NewPermissionService(repo, newCacheStub(), nil, nil, 0)

	err := svc.UpdateGrants(context.Background(), "sch-1", "teacher", UpdateGrantsRequest{
		PermissionKeys: []string{"not_a_permission"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.replaced)
}

func TestUpdateGrantsInvalidatesCache(t *testing.T) {
	repo := &permissionRepoStub{
		catalog:  models.PermissionCatalog,
		subRoles: map[string]*models.SubRole{"teacher": {Key: "teacher", SchoolID: "sch-1"}},
		grants:   map[string][]string{"teacher": {models.PermManageAttendance}},
	}
	cache := newCacheStub()
	svc := NewPermissionService(repo, cache, nil, nil, 0)
	claims := &models.JWTClaims{UserID: "u-1", Role: models.RoleEmployee, SubRole: "teacher", SchoolID: "sch-1"}

	_, err := svc.CanPerform(context.Background(), claims, models.PermManageAttendance)
	require.NoError(t, err)
	require.NotEmpty(t, cache.store)

	err = svc.UpdateGrants(context.Background(), "sch-1", "teacher", UpdateGrantsRequest{
		PermissionKeys: []string{models.PermManageExams},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, cache.deleted)
	assert.Equal(t, []string{models.PermManageExams}, repo.replaced["teacher"])
}
