package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fazendarp/fazendabot/internal/config"
	"github.com/fazendarp/fazendabot/internal/settle"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Receipt workflow statuses.
const (
	StatusPendingApproval = "PENDING_APPROVAL"
	StatusApproved        = "APPROVED"
	StatusRejected        = "REJECTED"
	StatusPaid            = "PAID"
)

// Service types.
const (
	ServiceAnimal = "animal"
	ServicePlant  = "plant"
)

// Receipt is the durable record of one service claim and its settlement.
type Receipt struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	PlayerName string    `json:"player_name"`

	ServiceType string `json:"service_type"`
	Quantity    int64  `json:"quantity"`
	// OriginalQuantity is set on the first moderator edit, for audit.
	OriginalQuantity int64  `json:"original_quantity,omitempty"`
	AnimalType       string `json:"animal_type,omitempty"`
	PlantName        string `json:"plant_name,omitempty"`
	CustomPlant      bool   `json:"custom_plant,omitempty"`

	FarmIncome    decimal.Decimal `json:"farm_income"`
	FarmCost      decimal.Decimal `json:"farm_cost"`
	FarmProfit    decimal.Decimal `json:"farm_profit"`
	PlayerPayment decimal.Decimal `json:"player_payment"`
	Penalty       decimal.Decimal `json:"penalty"`
	PlayerDebt    decimal.Decimal `json:"player_debt"`

	Status         string `json:"status"`
	ScreenshotPath string `json:"screenshot_path,omitempty"`
	ExtractedText  string `json:"extracted_text,omitempty"`

	// Independent verification outcome attached at submission time.
	DetectedQuantity    int64  `json:"detected_quantity"`
	QuantityMatch       bool   `json:"quantity_match"`
	AutoAccept          bool   `json:"auto_accept"`
	VerificationMessage string `json:"verification_message,omitempty"`

	// Where the claim was made, for the approval workflow.
	GuildID   string `json:"guild_id,omitempty"`
	ChannelID string `json:"channel_id,omitempty"`
	MemberID  string `json:"member_id,omitempty"`

	ApprovedBy string     `json:"approved_by,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	RejectedBy string     `json:"rejected_by,omitempty"`
	RejectedAt *time.Time `json:"rejected_at,omitempty"`
	PaidBy     string     `json:"paid_by,omitempty"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
	EditedBy   string     `json:"edited_by,omitempty"`
	EditedAt   *time.Time `json:"edited_at,omitempty"`
}

// PlayerSummary aggregates a player's receipts. It is maintained purely by
// deltas on create/edit/delete, never recomputed from the receipt files.
type PlayerSummary struct {
	PlayerName     string          `json:"player_name"`
	TotalEarnings  decimal.Decimal `json:"total_earnings"`
	TotalServices  int64           `json:"total_services"`
	AnimalServices int64           `json:"animal_services"`
	PlantServices  int64           `json:"plant_services"`
	LastService    time.Time       `json:"last_service"`
}

// NewReceiptID builds a date-prefixed id with a uuid fragment suffix. The
// prefix keeps the files sortable by submission time; the fragment makes
// concurrent submissions collision-free.
func NewReceiptID(now time.Time) string {
	frag := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return now.Format("20060102-150405") + "-" + frag
}

func (s *Store) CreateReceipt(ctx context.Context, r *Receipt) error {
	unlock := s.lockPlayer(r.PlayerName)
	defer unlock()

	path := s.receiptPath(r.PlayerName, r.ID)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("receipt %s already exists", r.ID)
	}
	if err := writeJSON(path, r); err != nil {
		return fmt.Errorf("failed to write receipt: %w", err)
	}

	return s.adjustSummary(r.PlayerName, r.PlayerPayment, 1, r.ServiceType, r.Timestamp)
}

func (s *Store) GetReceipt(ctx context.Context, player, id string) (*Receipt, error) {
	var r Receipt
	if err := readJSON(s.receiptPath(player, id), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// FindReceipt locates a receipt by id alone, scanning player directories.
// Used by the dashboard and the approval workflow, which carry only the id.
func (s *Store) FindReceipt(ctx context.Context, id string) (*Receipt, error) {
	playersDir := filepath.Join(s.root, "players")
	entries, err := os.ReadDir(playersDir)
	if err != nil {
		return nil, ErrNotFound
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(playersDir, e.Name(), "receipts", id+".json")
		var r Receipt
		if err := readJSON(path, &r); err == nil {
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

// SaveReceipt rewrites a receipt in place. Callers that change the payment
// must go through UpdateReceiptQuantity instead so the summary stays in step.
func (s *Store) SaveReceipt(ctx context.Context, r *Receipt) error {
	unlock := s.lockPlayer(r.PlayerName)
	defer unlock()
	return writeJSON(s.receiptPath(r.PlayerName, r.ID), r)
}

// UpdateReceiptQuantity applies a moderator edit: the quantity is replaced,
// the payment recalculated under the settlement rules, and the player summary
// adjusted by the payment delta under the same lock as the rewrite.
func (s *Store) UpdateReceiptQuantity(ctx context.Context, id string, quantity int64, editor string, eco *config.Economy) (*Receipt, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}

	r, err := s.FindReceipt(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.lockPlayer(r.PlayerName)
	defer unlock()

	// Re-read under the lock; FindReceipt raced unlocked.
	if err := readJSON(s.receiptPath(r.PlayerName, id), r); err != nil {
		return nil, err
	}

	oldPayment := r.PlayerPayment
	if r.OriginalQuantity == 0 {
		r.OriginalQuantity = r.Quantity
	}
	r.Quantity = quantity

	if r.ServiceType == ServicePlant {
		plant := settle.CalculatePlant(quantity, r.PlantName, r.CustomPlant, eco)
		r.PlayerPayment = plant.PlayerPayment
	}

	now := time.Now()
	r.EditedBy = editor
	r.EditedAt = &now

	if err := writeJSON(s.receiptPath(r.PlayerName, r.ID), r); err != nil {
		return nil, fmt.Errorf("failed to write receipt: %w", err)
	}

	delta := r.PlayerPayment.Sub(oldPayment)
	if !delta.IsZero() {
		if err := s.adjustSummary(r.PlayerName, delta, 0, "", time.Time{}); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DeleteReceipt removes a receipt and subtracts exactly its contribution
// from the player summary.
func (s *Store) DeleteReceipt(ctx context.Context, id string) error {
	r, err := s.FindReceipt(ctx, id)
	if err != nil {
		return err
	}

	unlock := s.lockPlayer(r.PlayerName)
	defer unlock()

	path := s.receiptPath(r.PlayerName, r.ID)
	if err := readJSON(path, r); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete receipt: %w", err)
	}

	return s.adjustSummary(r.PlayerName, r.PlayerPayment.Neg(), -1, r.ServiceType, time.Time{})
}

func (s *Store) ListPlayerReceipts(ctx context.Context, player string) ([]Receipt, error) {
	dir := filepath.Join(s.playerDir(player), "receipts")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []Receipt
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		var r Receipt
		if err := readJSON(filepath.Join(dir, e.Name()), &r); err != nil {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// ReceiptFilter narrows ListReceipts. Zero values match everything.
type ReceiptFilter struct {
	Status      string
	ServiceType string
	SortBy      string // "date" (default) or "payment"
}

func (s *Store) ListReceipts(ctx context.Context, filter ReceiptFilter) ([]Receipt, error) {
	playersDir := filepath.Join(s.root, "players")
	entries, err := os.ReadDir(playersDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []Receipt
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		// Player name inside the documents is authoritative; the dir name is
		// only a sanitized key.
		var doc PlayerSummary
		if err := readJSON(filepath.Join(playersDir, e.Name(), "summary.json"), &doc); err != nil {
			continue
		}
		receipts, err := s.ListPlayerReceipts(ctx, doc.PlayerName)
		if err != nil {
			return nil, err
		}
		for _, r := range receipts {
			if filter.Status != "" && r.Status != filter.Status {
				continue
			}
			if filter.ServiceType != "" && r.ServiceType != filter.ServiceType {
				continue
			}
			out = append(out, r)
		}
	}

	if filter.SortBy == "payment" {
		sort.Slice(out, func(i, j int) bool { return out[i].PlayerPayment.GreaterThan(out[j].PlayerPayment) })
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	}
	return out, nil
}

func (s *Store) GetSummary(ctx context.Context, player string) (*PlayerSummary, error) {
	var sum PlayerSummary
	if err := readJSON(s.summaryPath(player), &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

// adjustSummary applies a delta to a player summary. Callers must hold the
// player lock. countDelta is +1/-1/0; serviceType selects which per-type
// counter moves with it.
func (s *Store) adjustSummary(player string, paymentDelta decimal.Decimal, countDelta int64, serviceType string, lastService time.Time) error {
	sum := PlayerSummary{PlayerName: player, TotalEarnings: decimal.Zero}
	if err := readJSON(s.summaryPath(player), &sum); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	sum.TotalEarnings = sum.TotalEarnings.Add(paymentDelta)
	sum.TotalServices += countDelta
	switch serviceType {
	case ServiceAnimal:
		sum.AnimalServices += countDelta
	case ServicePlant:
		sum.PlantServices += countDelta
	}
	if !lastService.IsZero() && lastService.After(sum.LastService) {
		sum.LastService = lastService
	}

	if err := writeJSON(s.summaryPath(player), &sum); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
