package routers

import (
	"net/http"

	"lumen_banksync/internal/api/handlers/transactions"
)

func transactionsRouter(deps Deps) *http.ServeMux {
	h := &transactions.Handler{DB: deps.DB}

	mux := http.NewServeMux()

	mux.HandleFunc("/transactions/user", h.GetAllUserTransactions)

	mux.HandleFunc("/transactions/{id}/user", h.GetTransactionById)

	mux.HandleFunc("/transactions/{id}/category", h.SetCategory)

	return mux
}
