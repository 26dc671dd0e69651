package handlers

import (
	"net/http"

	"lumen_banksync/pkg/utils"
)

// UserIDFromRequest pulls the authenticated user id the JWT middleware left
// in the context. JSON numbers decode as float64.
func UserIDFromRequest(r *http.Request) (int, bool) {
	idFloat, ok := r.Context().Value(utils.ContextKey("userId")).(float64)
	if !ok {
		return 0, false
	}
	return int(idFloat), true
}
