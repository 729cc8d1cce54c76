package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuthRedirectRequiresCode(t *testing.T) {
	a, _ := newTestAPI(t)

	req := httptest.NewRequest("GET", "/auth/callback", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthRedirectBouncesToDashboardOnExchangeFailure(t *testing.T) {
	a, _ := newTestAPI(t)

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad code", http.StatusBadRequest)
	}))
	defer tokenSrv.Close()
	a.oauthConfig.Endpoint.TokenURL = tokenSrv.URL

	req := httptest.NewRequest("GET", "/auth/callback?code=abc", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "http://dashboard.test/login?error=token_exchange_failed", w.Header().Get("Location"))
}
