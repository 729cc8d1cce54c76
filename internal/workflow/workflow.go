// Package workflow drives a receipt from PENDING_APPROVAL through approval,
// payment and final settlement, keeping the channel's running ledger message
// in step.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/fazendarp/fazendabot/internal/config"
	"github.com/fazendarp/fazendabot/internal/permissions"
	"github.com/fazendarp/fazendabot/internal/store"
)

// Channel message markers. Messages carrying these survive the final
// settlement cleanup.
const (
	RegistrationMarker = "📌 Registro de Serviços"
	settlementHeader   = "📋 Acerto Final"
	ledgerHeader       = "🧾 Comanda de"
)

var ErrBadState = errors.New("receipt state does not allow this action")

// Messenger is the slice of the chat session the workflow needs. Satisfied by
// *discordgo.Session; faked in tests.
type Messenger interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID string, messageID string, options ...discordgo.RequestOption) error
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessagesPinned(channelID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
}

// Actor is the moderator performing a workflow action.
type Actor struct {
	ID    string
	Name  string
	Roles []string
}

type Workflow struct {
	store *store.Store
	gate  *permissions.Gate
	msgr  Messenger
	eco   *config.Economy
	log   *slog.Logger
}

func New(st *store.Store, gate *permissions.Gate, msgr Messenger, eco *config.Economy, log *slog.Logger) *Workflow {
	return &Workflow{store: st, gate: gate, msgr: msgr, eco: eco, log: log}
}

// Allowed reports whether the roles may perform an action, without running
// it. Used to gate UI affordances like modals.
func (w *Workflow) Allowed(action permissions.Action, roles []string) bool {
	return w.gate.Allowed(action, roles)
}

// Approve marks a pending receipt APPROVED and puts its line item on the
// channel's running ledger.
func (w *Workflow) Approve(ctx context.Context, receiptID string, actor Actor) (*store.Receipt, error) {
	if err := w.gate.Check(permissions.ActionAccept, actor.Roles); err != nil {
		return nil, err
	}

	r, err := w.store.FindReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if r.Status != store.StatusPendingApproval {
		return nil, fmt.Errorf("%w: receipt is %s", ErrBadState, r.Status)
	}

	now := time.Now()
	r.Status = store.StatusApproved
	r.ApprovedBy = actor.Name
	r.ApprovedAt = &now
	if err := w.store.SaveReceipt(ctx, r); err != nil {
		return nil, err
	}

	ledger, err := w.store.AppendLedgerItem(ctx, r.ChannelID, r.PlayerName, store.LedgerItem{
		ReceiptID:  r.ID,
		Item:       itemName(r),
		Quantity:   r.Quantity,
		Payment:    r.PlayerPayment,
		ApprovedBy: actor.Name,
	})
	if err != nil {
		return nil, err
	}

	if err := w.redrawLedger(ctx, ledger); err != nil {
		w.log.Warn("failed to redraw ledger message", "receipt", r.ID, "error", err)
	}
	return r, nil
}

// Reject is terminal and never touches the ledger.
func (w *Workflow) Reject(ctx context.Context, receiptID string, actor Actor) (*store.Receipt, error) {
	if err := w.gate.Check(permissions.ActionReject, actor.Roles); err != nil {
		return nil, err
	}

	r, err := w.store.FindReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if r.Status != store.StatusPendingApproval {
		return nil, fmt.Errorf("%w: receipt is %s", ErrBadState, r.Status)
	}

	now := time.Now()
	r.Status = store.StatusRejected
	r.RejectedBy = actor.Name
	r.RejectedAt = &now
	if err := w.store.SaveReceipt(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// EditQuantity replaces the claimed quantity and recalculates the payment;
// the receipt stays pending, awaiting the same three decisions again.
func (w *Workflow) EditQuantity(ctx context.Context, receiptID string, quantity int64, actor Actor) (*store.Receipt, error) {
	if err := w.gate.Check(permissions.ActionEdit, actor.Roles); err != nil {
		return nil, err
	}

	r, err := w.store.FindReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if r.Status != store.StatusPendingApproval {
		return nil, fmt.Errorf("%w: receipt is %s", ErrBadState, r.Status)
	}

	return w.store.UpdateReceiptQuantity(ctx, receiptID, quantity, actor.Name, w.eco)
}

// Pay settles one approved receipt immediately and flags its ledger line as
// paid.
func (w *Workflow) Pay(ctx context.Context, receiptID string, actor Actor) (*store.Receipt, error) {
	if err := w.gate.Check(permissions.ActionPay, actor.Roles); err != nil {
		return nil, err
	}

	r, err := w.store.FindReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if r.Status != store.StatusApproved {
		return nil, fmt.Errorf("%w: receipt is %s", ErrBadState, r.Status)
	}

	now := time.Now()
	r.Status = store.StatusPaid
	r.PaidBy = actor.Name
	r.PaidAt = &now
	if err := w.store.SaveReceipt(ctx, r); err != nil {
		return nil, err
	}

	ledger, err := w.store.MarkLedgerItemPaid(ctx, r.ChannelID, r.PlayerName, r.ID)
	if err != nil {
		w.log.Warn("paid receipt missing from ledger", "receipt", r.ID, "error", err)
		return r, nil
	}
	if err := w.redrawLedger(ctx, ledger); err != nil {
		w.log.Warn("failed to redraw ledger message", "receipt", r.ID, "error", err)
	}
	return r, nil
}

// PayAll is the final settlement for one player in one channel: every
// ledgered receipt is marked PAID, a terminal summary is posted, the channel
// is cleaned and the ledger is archived away. Receipts stay in the player's
// history.
func (w *Workflow) PayAll(ctx context.Context, channelID, player string, actor Actor) (*store.LedgerArchive, error) {
	if err := w.gate.Check(permissions.ActionPay, actor.Roles); err != nil {
		return nil, err
	}

	ledger, err := w.store.GetLedger(ctx, channelID, player)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for _, item := range ledger.Items {
		r, err := w.store.GetReceipt(ctx, player, item.ReceiptID)
		if err != nil {
			w.log.Warn("ledger item without receipt", "receipt", item.ReceiptID, "error", err)
			continue
		}
		if r.Status == store.StatusPaid {
			continue
		}
		r.Status = store.StatusPaid
		r.PaidBy = actor.Name
		r.PaidAt = &now
		if err := w.store.SaveReceipt(ctx, r); err != nil {
			return nil, err
		}
	}

	if _, err := w.msgr.ChannelMessageSend(channelID, renderSettlement(ledger, actor.Name)); err != nil {
		w.log.Warn("failed to post settlement summary", "channel", channelID, "error", err)
	}

	archive, err := w.store.ArchiveLedger(ctx, channelID, player, actor.Name)
	if err != nil {
		return nil, err
	}

	if err := w.cleanupChannel(channelID); err != nil {
		w.log.Warn("settlement cleanup incomplete", "channel", channelID, "error", err)
	}
	return archive, nil
}

// redrawLedger moves the running-receipt message to the bottom of the
// channel: the old message is deleted and a fresh one posted.
func (w *Workflow) redrawLedger(ctx context.Context, ledger *store.Ledger) error {
	if ledger.MessageID != "" {
		if err := w.msgr.ChannelMessageDelete(ledger.ChannelID, ledger.MessageID); err != nil {
			w.log.Warn("failed to delete previous ledger message", "channel", ledger.ChannelID, "error", err)
		}
	}

	msg, err := w.msgr.ChannelMessageSend(ledger.ChannelID, renderLedger(ledger))
	if err != nil {
		return err
	}
	return w.store.SetLedgerMessage(ctx, ledger.ChannelID, ledger.PlayerName, msg.ID)
}

// cleanupChannel deletes the channel's messages except pinned ones, the main
// registration message and settlement summaries (including the one just
// posted).
func (w *Workflow) cleanupChannel(channelID string) error {
	pinned := make(map[string]bool)
	if msgs, err := w.msgr.ChannelMessagesPinned(channelID); err == nil {
		for _, m := range msgs {
			pinned[m.ID] = true
		}
	}

	beforeID := ""
	for {
		msgs, err := w.msgr.ChannelMessages(channelID, 100, beforeID, "", "")
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			return nil
		}

		for _, m := range msgs {
			beforeID = m.ID
			if pinned[m.ID] || m.Pinned {
				continue
			}
			if spared(m.Content) {
				continue
			}
			if err := w.msgr.ChannelMessageDelete(channelID, m.ID); err != nil {
				w.log.Warn("failed to delete message during cleanup", "message", m.ID, "error", err)
			}
		}

		if len(msgs) < 100 {
			return nil
		}
	}
}

func spared(content string) bool {
	return containsMarker(content, RegistrationMarker) || containsMarker(content, settlementHeader)
}
