package routers

import (
	"database/sql"
	"net/http"

	"lumen_banksync/internal/services"
)

// Deps carries the wiring every router needs; main constructs it once.
type Deps struct {
	DB           *sql.DB
	Requisitions *services.RequisitionService
	Sync         *services.SyncService
}

func MainRouter(deps Deps) *http.ServeMux {

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	bRouter := banksRouter(deps)
	mux.Handle("/banks/", bRouter)

	sRouter := syncsRouter(deps)
	mux.Handle("/sync/", sRouter)

	tRouter := transactionsRouter(deps)
	mux.Handle("/transactions/", tRouter)

	rRouter := rulesRouter(deps)
	mux.Handle("/rules/", rRouter)

	return mux
}
