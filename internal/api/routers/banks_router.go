package routers

import (
	"net/http"

	"lumen_banksync/internal/api/handlers/banks"
)

func banksRouter(deps Deps) *http.ServeMux {
	h := &banks.Handler{Requisitions: deps.Requisitions, DB: deps.DB}

	mux := http.NewServeMux()

	mux.HandleFunc("/banks/requisitions", h.CreateRequisition)
	mux.HandleFunc("/banks/requisitions/finalize", h.FinalizeRequisition)
	mux.HandleFunc("/banks/institutions", h.ListInstitutions)
	mux.HandleFunc("/banks/{id}", h.Disconnect)
	mux.HandleFunc("/banks/", h.ListConnectedBanks)

	return mux
}
