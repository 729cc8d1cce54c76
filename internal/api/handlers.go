package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fazendarp/fazendabot/internal/evidence"
	"github.com/fazendarp/fazendabot/internal/store"
	"github.com/fazendarp/fazendabot/internal/submission"
	"github.com/gorilla/mux"
)

// handleSubmit accepts a multipart claim (screenshot + form fields) and runs
// it through the same verification and settlement pipeline as the chat
// wizard.
func (a *API) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(evidence.MaxFileSize + 1<<20); err != nil {
		httpError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	playerName := strings.TrimSpace(r.FormValue("player_name"))
	serviceType := r.FormValue("service_type")
	itemType := strings.TrimSpace(r.FormValue("item"))
	customPlant := r.FormValue("custom_plant") == "true"

	if playerName == "" || itemType == "" {
		httpError(w, http.StatusBadRequest, "player_name and item are required")
		return
	}
	if serviceType != store.ServiceAnimal && serviceType != store.ServicePlant {
		httpError(w, http.StatusBadRequest, "service_type must be animal or plant")
		return
	}

	var quantity int64
	if serviceType == store.ServicePlant {
		q, err := strconv.ParseInt(r.FormValue("quantity"), 10, 64)
		if err != nil || q <= 0 {
			httpError(w, http.StatusBadRequest, "quantity must be a positive integer")
			return
		}
		quantity = q
	}

	file, header, err := r.FormFile("screenshot")
	if err != nil {
		httpError(w, http.StatusBadRequest, "screenshot file is required")
		return
	}
	defer file.Close()

	if header.Size > evidence.MaxFileSize {
		httpError(w, http.StatusBadRequest, "screenshot exceeds the 5 MB limit")
		return
	}
	if ct := header.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		httpError(w, http.StatusBadRequest, "screenshot must be an image")
		return
	}

	receiptID := store.NewReceiptID(time.Now())
	path, err := a.saveScreenshot(file, header.Filename, receiptID)
	if err != nil {
		a.log.Error("failed to save screenshot", "error", err)
		httpError(w, http.StatusInternalServerError, "failed to store screenshot")
		return
	}

	claim := submission.Claim{
		PlayerName:  playerName,
		ServiceType: serviceType,
		ItemType:    itemType,
		Quantity:    quantity,
		CustomPlant: customPlant,
	}

	receipt, err := a.builder.Build(r.Context(), claim, receiptID, path)
	if err != nil {
		os.Remove(path)
		if errors.Is(err, submission.ErrRejected) {
			httpError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		a.log.Error("submission build failed", "error", err)
		httpError(w, http.StatusInternalServerError, "verification failed")
		return
	}

	if err := a.store.CreateReceipt(r.Context(), receipt); err != nil {
		a.log.Error("failed to persist receipt", "receipt", receiptID, "error", err)
		httpError(w, http.StatusInternalServerError, "failed to persist receipt")
		return
	}

	writeJSON(w, http.StatusCreated, receipt)
}

func (a *API) saveScreenshot(file io.Reader, filename, receiptID string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".png"
	}
	dest := filepath.Join(a.store.EvidenceDir(), receiptID+ext)

	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, io.LimitReader(file, evidence.MaxFileSize)); err != nil {
		os.Remove(dest)
		return "", err
	}
	return dest, nil
}

func (a *API) handlePlayerReceipts(w http.ResponseWriter, r *http.Request) {
	player := mux.Vars(r)["name"]

	receipts, err := a.store.ListPlayerReceipts(r.Context(), player)
	if err != nil {
		a.log.Error("failed to list receipts", "player", player, "error", err)
		httpError(w, http.StatusInternalServerError, "failed to list receipts")
		return
	}
	if receipts == nil {
		receipts = []store.Receipt{}
	}
	writeJSON(w, http.StatusOK, receipts)
}

func (a *API) handlePlayerSummary(w http.ResponseWriter, r *http.Request) {
	player := mux.Vars(r)["name"]

	sum, err := a.store.GetSummary(r.Context(), player)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpError(w, http.StatusNotFound, "player not found")
			return
		}
		a.log.Error("failed to load summary", "player", player, "error", err)
		httpError(w, http.StatusInternalServerError, "failed to load summary")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (a *API) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	filter := store.ReceiptFilter{
		Status:      r.URL.Query().Get("status"),
		ServiceType: r.URL.Query().Get("type"),
		SortBy:      r.URL.Query().Get("sort"),
	}

	receipts, err := a.store.ListReceipts(r.Context(), filter)
	if err != nil {
		a.log.Error("failed to list receipts", "error", err)
		httpError(w, http.StatusInternalServerError, "failed to list receipts")
		return
	}
	if receipts == nil {
		receipts = []store.Receipt{}
	}
	writeJSON(w, http.StatusOK, receipts)
}

// handleEditReceipt is the dashboard's quantity correction. The editor
// recorded on the receipt is the logged-in dashboard user.
func (a *API) handleEditReceipt(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		Quantity int64 `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity <= 0 {
		httpError(w, http.StatusBadRequest, "quantity must be a positive integer")
		return
	}

	editor := "dashboard"
	if claims := requestClaims(r); claims != nil {
		editor = claims.Username
	}

	receipt, err := a.store.UpdateReceiptQuantity(r.Context(), id, req.Quantity, editor, a.eco)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpError(w, http.StatusNotFound, "receipt not found")
			return
		}
		a.log.Error("failed to edit receipt", "receipt", id, "error", err)
		httpError(w, http.StatusInternalServerError, "failed to edit receipt")
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (a *API) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := a.store.DeleteReceipt(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpError(w, http.StatusNotFound, "receipt not found")
			return
		}
		a.log.Error("failed to delete receipt", "receipt", id, "error", err)
		httpError(w, http.StatusInternalServerError, "failed to delete receipt")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "receipt deleted"})
}

// handleVerifyHook is the secondary verification pass: an external service
// re-checks a stored screenshot and the verification fields are rewritten.
// Settlement amounts are never touched here; only a moderator edit changes
// money.
func (a *API) handleVerifyHook(w http.ResponseWriter, r *http.Request) {
	if a.config.VerifySecret == "" {
		httpError(w, http.StatusNotFound, "verification hook disabled")
		return
	}
	secret := r.Header.Get("X-Verify-Secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(a.config.VerifySecret)) != 1 {
		httpError(w, http.StatusUnauthorized, "bad verification secret")
		return
	}

	id := mux.Vars(r)["receiptId"]
	receipt, err := a.store.FindReceipt(r.Context(), id)
	if err != nil {
		httpError(w, http.StatusNotFound, "receipt not found")
		return
	}
	if receipt.ScreenshotPath == "" {
		httpError(w, http.StatusConflict, "receipt has no stored screenshot")
		return
	}

	switch receipt.ServiceType {
	case store.ServiceAnimal:
		out := a.builder.Verifier.Animal(r.Context(), receipt.ScreenshotPath)
		if out.CannotVerify {
			httpError(w, http.StatusServiceUnavailable, "verification unavailable")
			return
		}
		receipt.ExtractedText = out.ExtractedText
		receipt.VerificationMessage = out.Message
	case store.ServicePlant:
		out := a.builder.Verifier.Plant(r.Context(), receipt.ScreenshotPath, receipt.PlantName, receipt.Quantity)
		if out.CannotVerify {
			httpError(w, http.StatusServiceUnavailable, "verification unavailable")
			return
		}
		receipt.ExtractedText = out.ExtractedText
		receipt.VerificationMessage = out.Message
		receipt.DetectedQuantity = out.DetectedQuantity
		receipt.QuantityMatch = out.QuantityMatch
		receipt.AutoAccept = out.AutoAccept
	default:
		httpError(w, http.StatusConflict, fmt.Sprintf("unknown service type %q", receipt.ServiceType))
		return
	}

	if err := a.store.SaveReceipt(r.Context(), receipt); err != nil {
		a.log.Error("failed to save reverified receipt", "receipt", id, "error", err)
		httpError(w, http.StatusInternalServerError, "failed to save receipt")
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
