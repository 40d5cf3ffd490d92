package main

import (
	"context"
	"time"

	"qrclock/internal/badge"
)

const badgeUploadTimeout = 15 * time.Second

// publishBadge renders the code and replaces the hosted badge. It is a no-op
// returning "" when no host is configured.
func (app *application) publishBadge(ctx context.Context, employeeID int64, code string) (string, error) {
	if app.badges == nil {
		return "", nil
	}

	png, err := badge.Render(code, badge.DefaultSize)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, badgeUploadTimeout)
	defer cancel()

	return app.badges.Upload(ctx, employeeID, png)
}
