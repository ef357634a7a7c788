package common

import (
	"net/http"
	"strconv"
)

// ParseLimitOffset extracts limit and offset query parameters. Missing,
// malformed or negative values fall back to the defaults.
func ParseLimitOffset(r *http.Request, defaultLimit, defaultOffset int) (limit, offset int) {
	limit = defaultLimit
	offset = defaultOffset
	q := r.URL.Query()
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l >= 0 {
		limit = l
	}
	if o, err := strconv.Atoi(q.Get("offset")); err == nil && o >= 0 {
		offset = o
	}
	return
}
