package app

import "net/http"

type sessionKey string

const (
	SessionKeyUserId  = sessionKey("userID")
	SessionKeyIsAdmin = sessionKey("isAdmin")
)

func (s sessionKey) String() string {
	return string(s)
}

func (app *Application) contextGetUserId(r *http.Request) int {
	userId, ok := r.Context().Value(SessionKeyUserId).(int)
	if !ok {
		panic("missing user id from context")
	}

	return userId
}

func (app *Application) contextIsAdmin(r *http.Request) bool {
	isAdmin, ok := r.Context().Value(SessionKeyIsAdmin).(bool)
	if !ok {
		return false
	}

	return isAdmin
}
