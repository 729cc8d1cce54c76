package bot

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/fazendarp/fazendabot/internal/store"
)

// reminderWorker periodically nudges moderators about receipts stuck in
// PENDING_APPROVAL past the configured age. One reminder per receipt per age
// interval; the receipt disappearing (approved, rejected, deleted) ends its
// reminders.
type reminderWorker struct {
	store    *store.Store
	session  reminderSession
	log      *slog.Logger
	age      time.Duration
	stopChan chan struct{}
	ticker   *time.Ticker
	interval time.Duration

	// last reminder per receipt id, process-local.
	sent map[string]time.Time
}

// Minimal session interface for sending channel messages.
type reminderSession interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

func newReminderWorker(session reminderSession, st *store.Store, age time.Duration, log *slog.Logger) *reminderWorker {
	if age <= 0 {
		return nil
	}
	return &reminderWorker{
		store:    st,
		session:  session,
		log:      log,
		age:      age,
		stopChan: make(chan struct{}),
		interval: time.Minute,
		sent:     make(map[string]time.Time),
	}
}

func (w *reminderWorker) start() {
	if w == nil {
		return
	}
	w.ticker = time.NewTicker(w.interval)
	go w.loop()
}

func (w *reminderWorker) stop() {
	if w == nil {
		return
	}
	close(w.stopChan)
	if w.ticker != nil {
		w.ticker.Stop()
	}
}

func (w *reminderWorker) loop() {
	ctx := context.Background()
	for {
		select {
		case <-w.ticker.C:
			w.tick(ctx)
		case <-w.stopChan:
			return
		}
	}
}

func (w *reminderWorker) tick(ctx context.Context) {
	now := time.Now()
	pending, err := w.store.ListReceipts(ctx, store.ReceiptFilter{Status: store.StatusPendingApproval})
	if err != nil {
		w.log.Error("reminder: failed to list pending receipts", "error", err)
		return
	}

	live := make(map[string]bool, len(pending))
	for _, r := range pending {
		live[r.ID] = true
		if r.ChannelID == "" || now.Sub(r.Timestamp) < w.age {
			continue
		}
		if last, ok := w.sent[r.ID]; ok && now.Sub(last) < w.age {
			continue
		}

		msg := fmt.Sprintf("⏰ O recibo `%s` de %s aguarda aprovação desde %s.\n\n※ mensagem automática",
			r.ID, r.PlayerName, r.Timestamp.Format("02/01 15:04"))
		if err := w.sendWithRetry(ctx, r.ChannelID, msg); err != nil {
			w.log.Warn("reminder: failed to send", "receipt", r.ID, "channel", r.ChannelID, "error", err)
			continue
		}
		w.sent[r.ID] = now
	}

	// Drop bookkeeping for receipts that left the pending state.
	for id := range w.sent {
		if !live[id] {
			delete(w.sent, id)
		}
	}
}

func (w *reminderWorker) sendWithRetry(ctx context.Context, channelID, content string) error {
	const attemptTimeout = 12 * time.Second
	const maxAttempts = 2

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		_, err := w.session.ChannelMessageSend(channelID, content, discordgo.WithContext(sendCtx))
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTemporaryOrTimeout(err) {
			return err
		}
		time.Sleep(time.Duration(300+rand.Intn(500)) * time.Millisecond)
	}
	return lastErr
}

func isTemporaryOrTimeout(err error) bool {
	if err == nil {
		return false
	}
	if ne, ok := err.(net.Error); ok {
		return ne.Timeout() || ne.Temporary()
	}
	return false
}
