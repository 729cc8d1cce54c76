package bot

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/fazendarp/fazendabot/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	messages []string
}

func (f *fakeSender) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.messages = append(f.messages, content)
	return &discordgo.Message{ID: "1", ChannelID: channelID}, nil
}

func TestReminderNudgesStalePendingReceiptOnce(t *testing.T) {
	st, err := store.New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, st.CreateReceipt(ctx, &store.Receipt{
		ID:            "20260101-120000-aaaaaaaa",
		Timestamp:     time.Now().Add(-2 * time.Hour),
		PlayerName:    "Maria",
		ServiceType:   store.ServicePlant,
		Quantity:      200,
		PlantName:     "Milho",
		PlayerPayment: decimal.NewFromInt(30),
		Status:        store.StatusPendingApproval,
		ChannelID:     "chan-1",
	}))

	sender := &fakeSender{}
	w := newReminderWorker(sender, st, time.Hour, slog.Default())

	w.tick(ctx)
	require.Len(t, sender.messages, 1)
	require.Contains(t, sender.messages[0], "20260101-120000-aaaaaaaa")

	// Within the same age window nothing new is sent.
	w.tick(ctx)
	require.Len(t, sender.messages, 1)
}

func TestReminderSkipsFreshAndNonPendingReceipts(t *testing.T) {
	st, err := store.New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, st.CreateReceipt(ctx, &store.Receipt{
		ID:            "20260101-120000-bbbbbbbb",
		Timestamp:     time.Now(),
		PlayerName:    "Maria",
		ServiceType:   store.ServicePlant,
		Quantity:      50,
		PlantName:     "Trigo",
		PlayerPayment: decimal.NewFromInt(7),
		Status:        store.StatusPendingApproval,
		ChannelID:     "chan-1",
	}))
	require.NoError(t, st.CreateReceipt(ctx, &store.Receipt{
		ID:            "20260101-120000-cccccccc",
		Timestamp:     time.Now().Add(-3 * time.Hour),
		PlayerName:    "Maria",
		ServiceType:   store.ServicePlant,
		Quantity:      100,
		PlantName:     "Milho",
		PlayerPayment: decimal.NewFromInt(15),
		Status:        store.StatusPaid,
		ChannelID:     "chan-1",
	}))

	sender := &fakeSender{}
	w := newReminderWorker(sender, st, time.Hour, slog.Default())

	w.tick(ctx)
	require.Empty(t, sender.messages)
}
