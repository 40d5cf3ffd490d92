package main

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"qrclock/internal/apperr"
	"qrclock/internal/auth"
	"qrclock/internal/authz"
	"qrclock/internal/badge"
	"qrclock/internal/domain/accounts"
	"qrclock/internal/domain/companies"
	"qrclock/internal/domain/employees"
	"qrclock/internal/params"
	"qrclock/internal/qrcode"
	"qrclock/internal/recorder"

	"github.com/go-playground/validator/v10"
)

// errorResponse maps service errors to statuses. Messages never say whether
// a resource of another company exists.
func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var tooSoon *recorder.TooSoonError
	var invalid validator.ValidationErrors

	switch {
	case errors.Is(err, authz.ErrUnauthenticated),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrInvalidSignature):
		app.unauthorizedErrorResponse(w, r, err)

	case errors.Is(err, authz.ErrForbiddenScope):
		app.forbiddenResponse(w, r, err)

	case errors.Is(err, recorder.ErrUnknownCode):
		app.logger.Infow("scan rejected", "method", r.Method, "path", r.URL.Path, "error", err.Error())
		writeJSONError(w, http.StatusNotFound, "unknown_code", "the scanned code is not recognised")

	case errors.Is(err, recorder.ErrInactiveCompany):
		writeJSONError(w, http.StatusLocked, "inactive_company", "the company is inactive")

	case errors.As(err, &tooSoon):
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(tooSoon.Wait.Seconds()))))
		writeJSONError(w, http.StatusTooManyRequests, "scan_too_soon", tooSoon.Error())

	case errors.Is(err, apperr.ErrTransient):
		app.logger.Warnw("transient error", "method", r.Method, "path", r.URL.Path, "error", err.Error())
		w.Header().Set("Retry-After", "1")
		writeJSONError(w, http.StatusServiceUnavailable, "transient", "temporary failure, try again")

	case errors.Is(err, employees.ErrNotFound),
		errors.Is(err, companies.ErrNotFound),
		errors.Is(err, accounts.ErrNotFound):
		if p := getPrincipal(r); p != nil && !p.IsOwner() {
			app.forbiddenResponse(w, r, err)
			return
		}
		app.notFoundResponse(w, r, err)

	case errors.Is(err, employees.ErrDuplicateNumber),
		errors.Is(err, employees.ErrCodeTaken),
		errors.Is(err, companies.ErrDuplicateName),
		errors.Is(err, accounts.ErrDuplicateUsername),
		errors.Is(err, qrcode.ErrAlreadyIssued):
		app.conflictResponse(w, r, err)

	case errors.As(err, &invalid),
		errors.Is(err, params.ErrInvalidRange),
		errors.Is(err, params.ErrInvalidParam),
		errors.Is(err, badge.ErrInvalidSize),
		errors.Is(err, accounts.ErrInvalidRole),
		errors.Is(err, errMissingCompany):
		app.badRequestResponse(w, r, err)

	default:
		app.internalServerError(w, r, err)
	}
}

func (app *application) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Errorw("internal error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusInternalServerError, "internal", "the server encountered a problem")
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("bad request", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusBadRequest, "bad_request", err.Error())
}

func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("not found", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusNotFound, "not_found", "not found")
}

func (app *application) conflictResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("conflict", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusConflict, "conflict", err.Error())
}

func (app *application) forbiddenResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("forbidden", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusForbidden, "forbidden", "you are not allowed to access this resource")
}

func (app *application) unauthorizedErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unauthorized error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "unauthorized")
}

func (app *application) unauthorizedBasicErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unauthorized basic error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	w.Header().Set("WWW-Authenticate", `Basic realm="restricted", charset="UTF-8"`)

	writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "unauthorized")
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request, retryAfter string) {
	app.logger.Warnw("rate limit exceeded", "method", r.Method, "path", r.URL.Path)

	w.Header().Set("Retry-After", retryAfter)

	writeJSONError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, retry after: "+retryAfter)
}
