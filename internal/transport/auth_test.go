package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStaticToken(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, StaticToken("s3cret").ValidateToken(ctx, "s3cret"))
	require.ErrorIs(t, StaticToken("s3cret").ValidateToken(ctx, "s3cre"), ErrUnauthorized)
	require.ErrorIs(t, StaticToken("").ValidateToken(ctx, ""), ErrUnauthorized)
}

func TestAuthMiddleware(t *testing.T) {
	handler := AuthMiddleware(StaticToken("token"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid", header: "Bearer token", want: http.StatusOK},
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "wrong", header: "Bearer nope", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)
			require.Equal(t, tt.want, rec.Code)
		})
	}
}
