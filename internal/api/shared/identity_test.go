package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRateLimitIdentity(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	keyID := uuid.New()
	userCtx := context.WithValue(context.Background(), UserIDContextKey, userID)

	tests := []struct {
		name       string
		ctx        context.Context
		remoteAddr string
		want       string
	}{
		{
			name:       "api key wins over user",
			ctx:        context.WithValue(userCtx, APIKeyIDContextKey, keyID),
			remoteAddr: "10.0.0.1:1234",
			want:       "key:" + keyID.String(),
		},
		{
			name:       "user",
			ctx:        userCtx,
			remoteAddr: "10.0.0.1:1234",
			want:       "user:" + userID.String(),
		},
		{
			name:       "address without port",
			ctx:        context.Background(),
			remoteAddr: "10.0.0.1:1234",
			want:       "ip:10.0.0.1",
		},
		{
			name:       "bare address",
			ctx:        context.Background(),
			remoteAddr: "10.0.0.9",
			want:       "ip:10.0.0.9",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/api/queue", nil).WithContext(tc.ctx)
			req.RemoteAddr = tc.remoteAddr
			assert.Equal(t, tc.want, RateLimitIdentity(req))
		})
	}
}
