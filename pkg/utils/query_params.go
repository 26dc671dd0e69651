package utils

import (
	"net/http"
	"strconv"
	"strings"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func GetPaginationParams(r *http.Request) (int, int) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

var sortableColumns = map[string]string{
	"date":     "date",
	"amount":   "amount",
	"category": "category",
	"created":  "created_at",
}

// AddSorting appends an ORDER BY for a whitelisted column. Anything else gets
// the newest-first default so pagination boundaries stay stable between
// requests.
func AddSorting(r *http.Request, query string) string {
	column, ok := sortableColumns[r.URL.Query().Get("sortBy")]
	if !ok {
		return query + " ORDER BY date DESC, id DESC"
	}
	direction := "ASC"
	if strings.EqualFold(r.URL.Query().Get("sortOrder"), "desc") {
		direction = "DESC"
	}
	return query + " ORDER BY " + column + " " + direction
}
