package app

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/cinebook/cinema-booking-system/api"
	"github.com/cinebook/cinema-booking-system/internal/domain"
)

// CreateSessionHandler establishes a session for a user already authenticated
// by the identity service. The caller proves itself with the shared exchange
// secret in the X-Auth-Token header.
func (app *Application) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	if !app.validExchangeToken(r) {
		logger.Warn("session exchange attempt with invalid token")
		app.unauthorizedAccessResponse(w, r)
		return
	}

	var input api.CreateSessionRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	user, err := app.userRepo.GetByID(r.Context(), input.UserId)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			logger.Warn("session exchange for unknown user", "user_id", input.UserId)
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	oldSessionId := app.sessionManager.Token(r.Context())

	err = app.sessionManager.RenewToken(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	app.sessionManager.Put(r.Context(), SessionKeyUserId.String(), user.ID)
	app.sessionManager.Put(r.Context(), SessionKeyIsAdmin.String(), input.Admin)

	if oldSessionId != "" {
		newSessionId := app.sessionManager.Token(r.Context())

		err = app.migrateSeatHolds(r.Context(), oldSessionId, newSessionId)
		if err != nil {
			logger.Error("failed to migrate seat holds to new session", "error", err)
		}
	}

	logger.Info("session established", "user_id", user.ID, "admin", input.Admin)

	w.WriteHeader(http.StatusNoContent)
}

func (app *Application) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	err := app.sessionManager.Destroy(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (app *Application) validExchangeToken(r *http.Request) bool {
	secret := app.config.AuthExchangeSecret
	if secret == "" {
		return false
	}

	token := r.Header.Get("X-Auth-Token")

	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}
