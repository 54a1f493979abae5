// Package bootstrap runs the first-boot provisioning: the admin account and
// the seeded reference data.
package bootstrap

import (
	"context"
	"errors"
	"time"

	"ficore.org/internal/audit"
	"ficore.org/internal/auth"
	"ficore.org/internal/config"
	"ficore.org/internal/identity"
	"ficore.org/internal/learning"
	"ficore.org/internal/obs"
	"ficore.org/internal/tax"
)

// Run provisions the admin user, tax reference data and the learning catalog.
// Everything is idempotent across restarts.
func Run(ctx context.Context, cfg *config.Config, users identity.Store, rules *tax.Rules, hub *learning.Engine, auditLog *audit.Log) error {
	if err := ensureAdmin(ctx, cfg, users, auditLog); err != nil {
		return err
	}
	if err := rules.SeedIfMissing(ctx); err != nil {
		return err
	}
	return hub.SeedIfMissing(ctx)
}

func ensureAdmin(ctx context.Context, cfg *config.Config, users identity.Store, auditLog *audit.Log) error {
	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	admin := &identity.User{
		ID:            cfg.AdminUsername,
		Email:         cfg.AdminEmail,
		PasswordHash:  hash,
		Role:          identity.RoleAdmin,
		Language:      "en",
		IsAdmin:       true,
		SetupComplete: true,
		CreatedAt:     time.Now().UTC(),
	}
	err = users.CreateUser(ctx, admin)
	if errors.Is(err, identity.ErrDuplicateUser) {
		obs.Info("admin user already provisioned", obs.RequestContext{}, obs.Fields{
			"user_id": cfg.AdminUsername,
		})
		return nil
	}
	if err != nil {
		return err
	}
	auditLog.Append(ctx, audit.SystemActor, "admin_provisioned", map[string]any{
		"user_id": cfg.AdminUsername,
	})
	return nil
}
