package routers

import (
	"net/http"

	"lumen_banksync/internal/api/handlers/rules"
)

func rulesRouter(deps Deps) *http.ServeMux {
	h := &rules.Handler{DB: deps.DB}

	mux := http.NewServeMux()

	mux.HandleFunc("/rules/", h.ListRules)
	mux.HandleFunc("/rules/create", h.CreateRule)
	mux.HandleFunc("/rules/{id}", h.DeleteRule)

	return mux
}
