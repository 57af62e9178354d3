package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-api/internal/models"
)

// PermissionRepository handles the permission catalog, sub-roles and
// per-school grant sets.
type PermissionRepository struct {
	db *sqlx.DB
}

// NewPermissionRepository constructs the repository.
func NewPermissionRepository(db *sqlx.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// SeedCatalog inserts any missing catalog entries. Existing rows are
// left untouched so customized labels survive restarts; the key's
// uniqueness constraint makes concurrent seeding safe.
func (r *PermissionRepository) SeedCatalog(ctx context.Context, catalog []models.Permission) error {
	const query = `INSERT INTO permissions (key, label, description)
VALUES ($1, $2, $3)
ON CONFLICT (key) DO NOTHING`
	for _, p := range catalog {
		if _, err := r.db.ExecContext(ctx, query, p.Key, p.Label, p.Description); err != nil {
			return fmt.Errorf("seed permission %s: %w", p.Key, err)
		}
	}
	return nil
}

// ListCatalog returns the full permission catalog.
func (r *PermissionRepository) ListCatalog(ctx context.Context) ([]models.Permission, error) {
	const query = `SELECT key, label, description FROM permissions ORDER BY key ASC`
	var perms []models.Permission
	if err := r.db.SelectContext(ctx, &perms, query); err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	return perms, nil
}

// SeedDefaultSubRoles inserts missing system sub-roles for a school.
func (r *PermissionRepository) SeedDefaultSubRoles(ctx context.Context, schoolID string, defaults []models.SubRole) error {
	const query = `INSERT INTO sub_roles (id, school_id, key, name, is_system, created_at)
VALUES ($1, $2, $3, $4, TRUE, $5)
ON CONFLICT (school_id, key) DO NOTHING`
	now := time.Now().UTC()
	for _, sr := range defaults {
		if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), schoolID, sr.Key, sr.Name, now); err != nil {
			return fmt.Errorf("seed sub-role %s: %w", sr.Key, err)
		}
	}
	return nil
}

// ListSubRoles returns the sub-roles of one school.
func (r *PermissionRepository) ListSubRoles(ctx context.Context, schoolID string) ([]models.SubRole, error) {
	const query = `SELECT id, school_id, key, name, is_system, created_at FROM sub_roles WHERE school_id = $1 ORDER BY name ASC`
	var subRoles []models.SubRole
	if err := r.db.SelectContext(ctx, &subRoles, query, schoolID); err != nil {
		return nil, fmt.Errorf("list sub-roles: %w", err)
	}
	return subRoles, nil
}

// FindSubRoleByKey returns a school's sub-role by key.
func (r *PermissionRepository) FindSubRoleByKey(ctx context.Context, schoolID, key string) (*models.SubRole, error) {
	const query = `SELECT id, school_id, key, name, is_system, created_at FROM sub_roles WHERE school_id = $1 AND key = $2`
	var subRole models.SubRole
	if err := r.db.GetContext(ctx, &subRole, query, schoolID, key); err != nil {
		return nil, err
	}
	return &subRole, nil
}

// CreateSubRole inserts an ad hoc sub-role, reusing an existing row on
// key conflict.
func (r *PermissionRepository) CreateSubRole(ctx context.Context, subRole *models.SubRole) error {
	if subRole.ID == "" {
		subRole.ID = uuid.NewString()
	}
	if subRole.CreatedAt.IsZero() {
		subRole.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO sub_roles (id, school_id, key, name, is_system, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (school_id, key) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, subRole.ID, subRole.SchoolID, subRole.Key, subRole.Name, subRole.IsSystem, subRole.CreatedAt); err != nil {
		return fmt.Errorf("create sub-role: %w", err)
	}
	return nil
}

// ListGrantKeys returns the permission keys granted to a sub-role.
func (r *PermissionRepository) ListGrantKeys(ctx context.Context, schoolID, subRoleKey string) ([]string, error) {
	const query = `SELECT permission_key FROM sub_role_permission_grants WHERE school_id = $1 AND sub_role_key = $2 ORDER BY permission_key ASC`
	var keys []string
	if err := r.db.SelectContext(ctx, &keys, query, schoolID, subRoleKey); err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	return keys, nil
}

// GrantExists reports whether one grant links the sub-role to the
// permission within the school.
func (r *PermissionRepository) GrantExists(ctx context.Context, schoolID, subRoleKey, permissionKey string) (bool, error) {
	const query = `SELECT 1 FROM sub_role_permission_grants WHERE school_id = $1 AND sub_role_key = $2 AND permission_key = $3 LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, schoolID, subRoleKey, permissionKey); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check grant: %w", err)
	}
	return true, nil
}

// ReplaceGrants swaps the full grant set of a sub-role in one
// transaction.
func (r *PermissionRepository) ReplaceGrants(ctx context.Context, schoolID, subRoleKey string, permissionKeys []string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace grants: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const deleteQuery = `DELETE FROM sub_role_permission_grants WHERE school_id = $1 AND sub_role_key = $2`
	if _, err = tx.ExecContext(ctx, deleteQuery, schoolID, subRoleKey); err != nil {
		return fmt.Errorf("clear grants: %w", err)
	}

	const insertQuery = `INSERT INTO sub_role_permission_grants (id, school_id, sub_role_key, permission_key, created_at)
VALUES ($1, $2, $3, $4, $5)`
	now := time.Now().UTC()
	for _, key := range permissionKeys {
		if _, err = tx.ExecContext(ctx, insertQuery, uuid.NewString(), schoolID, subRoleKey, key, now); err != nil {
			return fmt.Errorf("insert grant %s: %w", key, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace grants: %w", err)
	}
	return nil
}
