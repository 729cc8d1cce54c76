package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/fazendarp/fazendabot/internal/config"
	"github.com/fazendarp/fazendabot/internal/ocr"
	"github.com/fazendarp/fazendabot/internal/store"
	"github.com/fazendarp/fazendabot/internal/submission"
	"github.com/fazendarp/fazendabot/internal/verify"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T) (*API, *store.Store) {
	t.Helper()

	st, err := store.New(t.TempDir())
	require.NoError(t, err)

	eco, err := config.LoadEconomy("missing-economy.json")
	require.NoError(t, err)

	builder := &submission.Builder{
		Verifier: &verify.Verifier{OCR: ocr.Unavailable()},
		Economy:  eco,
	}
	cfg := &config.Config{
		JWTSecret:    "test-secret",
		VerifySecret: "hook-secret",
		WebUIBaseURL: "http://dashboard.test",
	}
	return New(cfg, eco, st, builder, slog.Default()), st
}

func bearerToken(t *testing.T, a *API, username string) string {
	t.Helper()

	claims := &Claims{
		UserID:   "42",
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.jwtSecret)
	require.NoError(t, err)
	return "Bearer " + token
}

func plantMultipart(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="screenshot"; filename="shot.png"`)
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG fake image bytes"))
	require.NoError(t, err)

	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestSubmitRequiresAuth(t *testing.T) {
	a, _ := newTestAPI(t)

	body, contentType := plantMultipart(t, map[string]string{
		"player_name": "Maria", "service_type": "plant", "item": "Milho", "quantity": "200",
	})
	req := httptest.NewRequest("POST", "/api/submissions", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	a.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSubmitPlantClaimCreatesPendingReceipt(t *testing.T) {
	a, st := newTestAPI(t)

	body, contentType := plantMultipart(t, map[string]string{
		"player_name": "Maria", "service_type": "plant", "item": "Milho", "quantity": "200",
	})
	req := httptest.NewRequest("POST", "/api/submissions", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", bearerToken(t, a, "Mod"))
	w := httptest.NewRecorder()

	a.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var receipt store.Receipt
	require.NoError(t, json.NewDecoder(w.Body).Decode(&receipt))
	require.Equal(t, store.StatusPendingApproval, receipt.Status)
	require.True(t, receipt.PlayerPayment.Equal(decimal.NewFromInt(30)))
	// No OCR configured: the claim can only go to human review.
	require.False(t, receipt.AutoAccept)

	sum, err := st.GetSummary(context.Background(), "Maria")
	require.NoError(t, err)
	require.True(t, sum.TotalEarnings.Equal(decimal.NewFromInt(30)))
}

func TestSubmitRejectsBadQuantity(t *testing.T) {
	a, _ := newTestAPI(t)

	body, contentType := plantMultipart(t, map[string]string{
		"player_name": "Maria", "service_type": "plant", "item": "Milho", "quantity": "-5",
	})
	req := httptest.NewRequest("POST", "/api/submissions", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", bearerToken(t, a, "Mod"))
	w := httptest.NewRecorder()

	a.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func seedReceipt(t *testing.T, st *store.Store, id string) {
	t.Helper()
	require.NoError(t, st.CreateReceipt(context.Background(), &store.Receipt{
		ID:            id,
		Timestamp:     time.Now(),
		PlayerName:    "Maria",
		ServiceType:   store.ServicePlant,
		Quantity:      200,
		PlantName:     "Milho",
		PlayerPayment: decimal.NewFromInt(30),
		Status:        store.StatusPendingApproval,
	}))
}

func TestPlayerHistoryEndpoints(t *testing.T) {
	a, st := newTestAPI(t)
	seedReceipt(t, st, "20260101-120000-aaaaaaaa")
	auth := bearerToken(t, a, "Mod")

	req := httptest.NewRequest("GET", "/api/players/Maria/receipts", nil)
	req.Header.Set("Authorization", auth)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var receipts []store.Receipt
	require.NoError(t, json.NewDecoder(w.Body).Decode(&receipts))
	require.Len(t, receipts, 1)

	req = httptest.NewRequest("GET", "/api/players/Maria/summary", nil)
	req.Header.Set("Authorization", auth)
	w = httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest("GET", "/api/players/Desconhecida/summary", nil)
	req.Header.Set("Authorization", auth)
	w = httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestEditReceiptRecalculatesAndRecordsEditor(t *testing.T) {
	a, st := newTestAPI(t)
	seedReceipt(t, st, "20260101-120000-bbbbbbbb")

	body := bytes.NewBufferString(`{"quantity": 100}`)
	req := httptest.NewRequest("PATCH", "/api/receipts/20260101-120000-bbbbbbbb", body)
	req.Header.Set("Authorization", bearerToken(t, a, "Moderadora"))
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var receipt store.Receipt
	require.NoError(t, json.NewDecoder(w.Body).Decode(&receipt))
	require.Equal(t, int64(100), receipt.Quantity)
	require.Equal(t, int64(200), receipt.OriginalQuantity)
	require.True(t, receipt.PlayerPayment.Equal(decimal.NewFromInt(15)))
	require.Equal(t, "Moderadora", receipt.EditedBy)
}

func TestDeleteReceiptAdjustsSummary(t *testing.T) {
	a, st := newTestAPI(t)
	seedReceipt(t, st, "20260101-120000-cccccccc")

	req := httptest.NewRequest("DELETE", "/api/receipts/20260101-120000-cccccccc", nil)
	req.Header.Set("Authorization", bearerToken(t, a, "Mod"))
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	sum, err := st.GetSummary(context.Background(), "Maria")
	require.NoError(t, err)
	require.True(t, sum.TotalEarnings.IsZero())
	require.Zero(t, sum.TotalServices)
}

func TestVerifyHookRequiresSharedSecret(t *testing.T) {
	a, st := newTestAPI(t)
	seedReceipt(t, st, "20260101-120000-dddddddd")

	req := httptest.NewRequest("POST", "/verify/20260101-120000-dddddddd", nil)
	req.Header.Set("X-Verify-Secret", "wrong")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerifyHookUnavailableWithoutOCR(t *testing.T) {
	a, st := newTestAPI(t)
	require.NoError(t, st.CreateReceipt(context.Background(), &store.Receipt{
		ID:             "20260101-120000-eeeeeeee",
		Timestamp:      time.Now(),
		PlayerName:     "Maria",
		ServiceType:    store.ServicePlant,
		Quantity:       200,
		PlantName:      "Milho",
		PlayerPayment:  decimal.NewFromInt(30),
		Status:         store.StatusPendingApproval,
		ScreenshotPath: "shot.png",
	}))

	req := httptest.NewRequest("POST", "/verify/20260101-120000-eeeeeeee", nil)
	req.Header.Set("X-Verify-Secret", "hook-secret")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
