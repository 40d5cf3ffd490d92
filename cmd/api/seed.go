package main

import (
	"context"
	"errors"

	"qrclock/internal/domain/accounts"
	"qrclock/internal/domain/storage"

	"go.uber.org/zap"
)

// ensureOwner provisions the owner account on first start.
func ensureOwner(ctx context.Context, store *storage.Container, cfg ownerConfig, logger *zap.SugaredLogger) error {
	_, err := store.Accounts.GetByUsername(ctx, cfg.username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, accounts.ErrNotFound) {
		return err
	}

	owner := &accounts.Account{Username: cfg.username, Role: accounts.RoleOwner}
	if err := owner.Password.Set(cfg.password); err != nil {
		return err
	}
	if err := store.Accounts.Create(ctx, owner); err != nil {
		if errors.Is(err, accounts.ErrDuplicateUsername) {
			return nil
		}
		return err
	}
	logger.Infow("owner account provisioned", "username", owner.Username)
	return nil
}
