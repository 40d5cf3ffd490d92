package main

import (
	"fmt"

	"qrclock/internal/domain/accounts"
)

// background runs fn in its own goroutine and logs a panic instead of
// taking the server down.
func (app *application) background(fn func()) {
	go func() {
		defer func() {
			if err := recover(); err != nil {
				app.logger.Errorw("background task panicked", "error", fmt.Sprint(err))
			}
		}()
		fn()
	}()
}

// sendMail notifies a freshly created account. Accounts without an email
// and deployments without SMTP are skipped.
func (app *application) sendMail(template string, a *accounts.Account, companyName string) {
	if app.mailer == nil || a.Email == "" {
		return
	}

	vars := struct {
		Username    string
		CompanyName string
		Role        accounts.Role
		LoginURL    string
	}{
		Username:    a.Username,
		CompanyName: companyName,
		Role:        a.Role,
		LoginURL:    app.config.frontendURL,
	}

	app.background(func() {
		status, err := app.mailer.Send(template, a.Username, a.Email, vars)
		if err != nil {
			app.logger.Errorw("error sending email", "account_id", a.ID, "error", err)
			return
		}
		app.logger.Infow("Email sent", "status code", status, "account_id", a.ID)
	})
}
