package common_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mx-paylink/internal/common"
)

func TestParseLimitOffset(t *testing.T) {
	cases := []struct {
		query         string
		limit, offset int
	}{
		{"", 10, 0},
		{"?limit=25&offset=50", 25, 50},
		{"?limit=abc&offset=-1", 10, 0},
		{"?offset=5", 10, 5},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/api/payments"+tc.query, nil)
		limit, offset := common.ParseLimitOffset(r, 10, 0)
		require.Equal(t, tc.limit, limit, tc.query)
		require.Equal(t, tc.offset, offset, tc.query)
	}
}
