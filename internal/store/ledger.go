package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger is the running accumulation of approved line items for one player in
// one channel, pending final settlement.
type Ledger struct {
	ChannelID    string          `json:"channel_id"`
	PlayerName   string          `json:"player_name"`
	Total        decimal.Decimal `json:"total"`
	ServiceCount int64           `json:"service_count"`
	Items        []LedgerItem    `json:"items"`
	// MessageID points at the running-receipt display message in the channel.
	MessageID string    `json:"message_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type LedgerItem struct {
	ReceiptID  string          `json:"receipt_id"`
	Item       string          `json:"item"`
	Quantity   int64           `json:"quantity"`
	Payment    decimal.Decimal `json:"payment"`
	ApprovedBy string          `json:"approved_by"`
	Paid       bool            `json:"paid"`
}

// LedgerArchive is a finalized ledger, stamped with who settled it and when.
type LedgerArchive struct {
	Ledger
	FinalizedBy string    `json:"finalized_by"`
	FinalizedAt time.Time `json:"finalized_at"`
}

func (s *Store) GetLedger(ctx context.Context, channelID, player string) (*Ledger, error) {
	var l Ledger
	if err := readJSON(s.ledgerPath(channelID, player), &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// AppendLedgerItem creates the ledger on first approval and adds the line
// item, keeping the running total and count in step.
func (s *Store) AppendLedgerItem(ctx context.Context, channelID, player string, item LedgerItem) (*Ledger, error) {
	unlock := s.lockLedger(channelID, player)
	defer unlock()

	now := time.Now()
	l := Ledger{ChannelID: channelID, PlayerName: player, Total: decimal.Zero, CreatedAt: now}
	if err := readJSON(s.ledgerPath(channelID, player), &l); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	for _, existing := range l.Items {
		if existing.ReceiptID == item.ReceiptID {
			return nil, fmt.Errorf("receipt %s already on the ledger", item.ReceiptID)
		}
	}

	l.Items = append(l.Items, item)
	l.Total = l.Total.Add(item.Payment)
	l.ServiceCount++
	l.UpdatedAt = now

	if err := writeJSON(s.ledgerPath(channelID, player), &l); err != nil {
		return nil, fmt.Errorf("failed to write ledger: %w", err)
	}
	return &l, nil
}

func (s *Store) SetLedgerMessage(ctx context.Context, channelID, player, messageID string) error {
	unlock := s.lockLedger(channelID, player)
	defer unlock()

	var l Ledger
	if err := readJSON(s.ledgerPath(channelID, player), &l); err != nil {
		return err
	}
	l.MessageID = messageID
	return writeJSON(s.ledgerPath(channelID, player), &l)
}

func (s *Store) MarkLedgerItemPaid(ctx context.Context, channelID, player, receiptID string) (*Ledger, error) {
	unlock := s.lockLedger(channelID, player)
	defer unlock()

	var l Ledger
	if err := readJSON(s.ledgerPath(channelID, player), &l); err != nil {
		return nil, err
	}

	found := false
	for i := range l.Items {
		if l.Items[i].ReceiptID == receiptID {
			l.Items[i].Paid = true
			found = true
			break
		}
	}
	if !found {
		return nil, ErrNotFound
	}

	l.UpdatedAt = time.Now()
	if err := writeJSON(s.ledgerPath(channelID, player), &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// ArchiveLedger moves a ledger into the archive store stamped with the
// finisher, then removes the working file. The player's receipts are not
// touched.
func (s *Store) ArchiveLedger(ctx context.Context, channelID, player, finalizedBy string) (*LedgerArchive, error) {
	unlock := s.lockLedger(channelID, player)
	defer unlock()

	var l Ledger
	if err := readJSON(s.ledgerPath(channelID, player), &l); err != nil {
		return nil, err
	}

	now := time.Now()
	archive := LedgerArchive{Ledger: l, FinalizedBy: finalizedBy, FinalizedAt: now}
	name := fmt.Sprintf("%s_%s_%s.json", channelID, sanitize(player), now.Format("20060102-150405"))
	if err := writeJSON(filepath.Join(s.root, "archives", name), &archive); err != nil {
		return nil, fmt.Errorf("failed to write archive: %w", err)
	}

	if err := os.Remove(s.ledgerPath(channelID, player)); err != nil {
		return nil, fmt.Errorf("failed to remove settled ledger: %w", err)
	}
	return &archive, nil
}
