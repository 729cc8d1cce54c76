package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/fazendarp/fazendabot/internal/commands"
	"github.com/fazendarp/fazendabot/internal/evidence"
	"github.com/fazendarp/fazendabot/internal/session"
	"github.com/fazendarp/fazendabot/internal/store"
	"github.com/fazendarp/fazendabot/internal/submission"
	"github.com/fazendarp/fazendabot/internal/workflow"
)

// Minimal session interface for the channel side of the pipeline: member
// notices, evidence cleanup and the receipt announcement.
type pipelineSession interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
}

// startEvidence hands a completed wizard to the submission pipeline. The wait
// and everything after it run off the interaction goroutine; the wizard
// response has already been sent.
func (b *Bot) startEvidence(s *discordgo.Session, sess *session.Session, channelID string) {
	go b.runSubmission(s, sess, channelID)
}

func (b *Bot) runSubmission(s *discordgo.Session, sess *session.Session, channelID string) {
	// The session slot is freed whatever happens; a failed submission starts
	// over from /servico.
	defer b.sessions.End(sess.ID)
	ctx := context.Background()

	msg, err := b.collector.WaitForAttachment(s, channelID, sess.MemberID)
	if err != nil {
		if errors.Is(err, evidence.ErrTimeout) {
			b.notify(channelID, sess.MemberID,
				"tempo esgotado para enviar o comprovante. Use /servico para registrar de novo.")
		}
		return
	}

	att := msg.Attachments[0]
	if err := evidence.Validate(att); err != nil {
		// The member's message stays in place; only the session is gone.
		b.notify(channelID, sess.MemberID, validationText(err))
		return
	}

	receiptID := store.NewReceiptID(time.Now())
	path, err := b.downloader.Download(ctx, att, b.store.EvidenceDir(), receiptID)
	if err != nil {
		b.log.Warn("evidence download failed", "receipt", receiptID, "error", err)
		b.notify(channelID, sess.MemberID,
			"não consegui baixar a imagem. Envie o comprovante de novo com /servico.")
		return
	}

	// The source message is only removed once the file is safely on disk.
	if err := b.msgr.ChannelMessageDelete(channelID, msg.ID); err != nil {
		b.log.Warn("failed to delete evidence message", "message", msg.ID, "error", err)
	}

	claim := submission.Claim{
		PlayerName:  b.resolvePlayerName(sess),
		ServiceType: sess.ServiceType,
		ItemType:    sess.ItemType,
		Quantity:    sess.Quantity,
		CustomPlant: sess.CustomPlant,
		GuildID:     sess.GuildID,
		ChannelID:   channelID,
		MemberID:    sess.MemberID,
	}

	r, err := b.builder.Build(ctx, claim, receiptID, path)
	if err != nil {
		os.Remove(path)
		if errors.Is(err, submission.ErrRejected) {
			b.notify(channelID, sess.MemberID, rejectionText(err))
			return
		}
		b.log.Error("submission build failed", "receipt", receiptID, "error", err)
		b.notify(channelID, sess.MemberID, "falha ao registrar o serviço. Tente novamente.")
		return
	}

	if err := b.store.CreateReceipt(ctx, r); err != nil {
		b.log.Error("failed to persist receipt", "receipt", receiptID, "error", err)
		b.notify(channelID, sess.MemberID, "falha ao registrar o serviço. Tente novamente.")
		return
	}
	b.log.Info("receipt created", "receipt", r.ID, "player", r.PlayerName,
		"type", r.ServiceType, "payment", r.PlayerPayment, "auto_accept", r.AutoAccept)

	_, err = b.msgr.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    workflow.ReceiptAnnouncement(r),
		Components: commands.ClaimButtons(r),
	})
	if err != nil {
		b.log.Error("failed to announce receipt", "receipt", r.ID, "error", err)
	}
}

// resolvePlayerName prefers the guild nickname, matching how receipts are
// keyed everywhere else.
func (b *Bot) resolvePlayerName(sess *session.Session) string {
	member, err := b.msgr.GuildMember(sess.GuildID, sess.MemberID)
	if err != nil {
		b.log.Warn("failed to resolve member name, using id", "member", sess.MemberID, "error", err)
		return sess.MemberID
	}
	if member.Nick != "" {
		return member.Nick
	}
	if member.User != nil {
		return member.User.Username
	}
	return sess.MemberID
}

func (b *Bot) notify(channelID, memberID, text string) {
	if _, err := b.msgr.ChannelMessageSend(channelID, fmt.Sprintf("<@%s> %s", memberID, text)); err != nil {
		b.log.Warn("failed to notify member", "channel", channelID, "error", err)
	}
}

func rejectionText(err error) string {
	msg := strings.TrimPrefix(err.Error(), submission.ErrRejected.Error()+": ")
	return "comprovante não aceito: " + msg
}

func validationText(err error) string {
	switch {
	case errors.Is(err, evidence.ErrNotAnImage):
		return "o comprovante precisa ser uma imagem (png, jpg, webp ou gif)."
	case errors.Is(err, evidence.ErrTooLarge):
		return "a imagem passa do limite de 5 MB. Envie uma versão menor."
	default:
		return "não foi possível usar esse arquivo como comprovante."
	}
}
