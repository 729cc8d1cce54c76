package commands

import (
	"errors"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// Discord error codes for interactions that expired server-side. These are
// recoverable: the member simply waited too long.
const (
	errCodeUnknownInteraction      = 10062
	errCodeInteractionAcknowledged = 40060
)

// IsExpiredInteraction detects the platform's expired-callback signature so
// callers can log and move on instead of failing.
func IsExpiredInteraction(err error) bool {
	var rerr *discordgo.RESTError
	if errors.As(err, &rerr) && rerr.Message != nil {
		return rerr.Message.Code == errCodeUnknownInteraction || rerr.Message.Code == errCodeInteractionAcknowledged
	}
	return false
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, log *slog.Logger, content string) {
	respond(s, i, log, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// respondStep renders a wizard step: the first step is a fresh ephemeral
// message, later steps update it in place.
func respondStep(s *discordgo.Session, i *discordgo.InteractionCreate, log *slog.Logger, update bool, content string, components []discordgo.MessageComponent) {
	typ := discordgo.InteractionResponseChannelMessageWithSource
	if update {
		typ = discordgo.InteractionResponseUpdateMessage
	}
	respond(s, i, log, &discordgo.InteractionResponse{
		Type: typ,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: components,
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	})
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, log *slog.Logger, resp *discordgo.InteractionResponse) {
	if err := s.InteractionRespond(i.Interaction, resp); err != nil {
		if IsExpiredInteraction(err) {
			log.Warn("interaction expired before response", "member", callerID(i))
			return
		}
		log.Error("failed to respond to interaction", "error", err)
	}
}

// callerID works for both guild and DM interactions.
func callerID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// callerName prefers the guild nickname over the account username; receipts
// and summaries are keyed by display name.
func callerName(i *discordgo.InteractionCreate) string {
	if i.Member != nil {
		if i.Member.Nick != "" {
			return i.Member.Nick
		}
		if i.Member.User != nil {
			return i.Member.User.Username
		}
	}
	if i.User != nil {
		return i.User.Username
	}
	return ""
}

func callerRoles(i *discordgo.InteractionCreate) []string {
	if i.Member != nil {
		return i.Member.Roles
	}
	return nil
}
