package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"hsdash/internal/domain/auth"
	"hsdash/internal/platform/querier"
)

type SeedOptions struct {
	TenantName    string
	AdminEmail    string
	AdminPassword string
}

// Seed makes sure the bootstrap tenant, permission catalogue, roles and
// HR admin exist. It is safe to run repeatedly.
func Seed(ctx context.Context, db querier.Querier, opts SeedOptions) (string, error) {
	tenantID, err := ensureTenant(ctx, db, opts.TenantName)
	if err != nil {
		return "", fmt.Errorf("seed tenant: %w", err)
	}
	if err := ensurePermissions(ctx, db); err != nil {
		return "", fmt.Errorf("seed permissions: %w", err)
	}
	roleIDs, err := ensureRoles(ctx, db, tenantID)
	if err != nil {
		return "", fmt.Errorf("seed roles: %w", err)
	}
	if err := ensureRolePermissions(ctx, db, roleIDs); err != nil {
		return "", fmt.Errorf("seed role permissions: %w", err)
	}
	if err := ensureAdminUser(ctx, db, tenantID, roleIDs[auth.RoleHR], opts.AdminEmail, opts.AdminPassword); err != nil {
		return "", fmt.Errorf("seed admin: %w", err)
	}
	return tenantID, nil
}

func ensureTenant(ctx context.Context, db querier.Querier, name string) (string, error) {
	var id string
	err := db.QueryRow(ctx, `
    INSERT INTO tenants (name) VALUES ($1)
    ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
    RETURNING id
  `, name).Scan(&id)
	return id, err
}

func ensurePermissions(ctx context.Context, db querier.Querier) error {
	for _, perm := range auth.DefaultPermissions {
		if _, err := db.Exec(ctx, "INSERT INTO permissions (key) VALUES ($1) ON CONFLICT (key) DO NOTHING", perm); err != nil {
			return err
		}
	}
	return nil
}

func ensureRoles(ctx context.Context, db querier.Querier, tenantID string) (map[string]string, error) {
	roleIDs := map[string]string{}
	for roleName := range auth.RolePermissions {
		var id string
		err := db.QueryRow(ctx, `
      INSERT INTO roles (tenant_id, name) VALUES ($1, $2)
      ON CONFLICT (tenant_id, name) DO UPDATE SET name = EXCLUDED.name
      RETURNING id
    `, tenantID, roleName).Scan(&id)
		if err != nil {
			return nil, err
		}
		roleIDs[roleName] = id
	}
	return roleIDs, nil
}

func ensureRolePermissions(ctx context.Context, db querier.Querier, roleIDs map[string]string) error {
	rows, err := db.Query(ctx, "SELECT id, key FROM permissions")
	if err != nil {
		return err
	}
	permIDs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) ([2]string, error) {
		var pair [2]string
		err := row.Scan(&pair[0], &pair[1])
		return pair, err
	})
	if err != nil {
		return err
	}
	byKey := make(map[string]string, len(permIDs))
	for _, pair := range permIDs {
		byKey[pair[1]] = pair[0]
	}

	for roleName, perms := range auth.RolePermissions {
		for _, key := range perms {
			permID, ok := byKey[key]
			if !ok {
				return errors.New("permission not found: " + key)
			}
			if _, err := db.Exec(ctx, "INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", roleIDs[roleName], permID); err != nil {
				return err
			}
		}
	}
	return nil
}

func ensureAdminUser(ctx context.Context, db querier.Querier, tenantID, roleID, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil
	}
	var id string
	err := db.QueryRow(ctx, "SELECT id FROM users WHERE tenant_id = $1 AND email = $2", tenantID, email).Scan(&id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, "INSERT INTO users (tenant_id, email, password_hash, role_id) VALUES ($1, $2, $3, $4)", tenantID, email, hash, roleID)
	return err
}
