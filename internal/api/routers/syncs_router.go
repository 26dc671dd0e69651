package routers

import (
	"net/http"

	"lumen_banksync/internal/api/handlers/syncs"
)

func syncsRouter(deps Deps) *http.ServeMux {
	h := &syncs.Handler{Sync: deps.Sync}

	mux := http.NewServeMux()

	mux.HandleFunc("/sync/accounts/{id}", h.SyncAccount)
	mux.HandleFunc("/sync/all", h.SyncAll)

	return mux
}
