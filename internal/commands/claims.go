package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/fazendarp/fazendabot/internal/permissions"
	"github.com/fazendarp/fazendabot/internal/store"
	"github.com/fazendarp/fazendabot/internal/workflow"
)

// ClaimButtons returns the moderator action row for a receipt announcement,
// matching the receipt's workflow state.
func ClaimButtons(r *store.Receipt) []discordgo.MessageComponent {
	var buttons []discordgo.MessageComponent
	switch r.Status {
	case store.StatusPendingApproval:
		buttons = []discordgo.MessageComponent{
			discordgo.Button{Label: "Aprovar", Style: discordgo.SuccessButton, CustomID: "claim:accept:" + r.ID},
			discordgo.Button{Label: "Editar", Style: discordgo.SecondaryButton, CustomID: "claim:edit:" + r.ID},
			discordgo.Button{Label: "Rejeitar", Style: discordgo.DangerButton, CustomID: "claim:reject:" + r.ID},
		}
	case store.StatusApproved:
		buttons = []discordgo.MessageComponent{
			discordgo.Button{Label: "Pagar", Style: discordgo.PrimaryButton, CustomID: "claim:pay:" + r.ID},
			discordgo.Button{Label: "Pagar tudo", Style: discordgo.SecondaryButton, CustomID: "claim:payall:" + r.ID},
		}
	default:
		return nil
	}
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: buttons}}
}

func handleClaimComponent(s *discordgo.Session, i *discordgo.InteractionCreate, deps *Deps, parts []string) {
	if len(parts) != 3 {
		return
	}
	action, receiptID := parts[1], parts[2]
	ctx := context.Background()
	actor := workflow.Actor{ID: callerID(i), Name: callerName(i), Roles: callerRoles(i)}

	switch action {
	case "accept":
		r, err := deps.Workflow.Approve(ctx, receiptID, actor)
		if err != nil {
			respondClaimError(s, i, deps, err)
			return
		}
		updateAnnouncement(s, i, deps, r, fmt.Sprintf("✅ Aprovado por %s.", actor.Name))
		deps.Log.Info("receipt approved", "receipt", receiptID, "moderator", actor.Name)

	case "reject":
		r, err := deps.Workflow.Reject(ctx, receiptID, actor)
		if err != nil {
			respondClaimError(s, i, deps, err)
			return
		}
		updateAnnouncement(s, i, deps, r, fmt.Sprintf("❌ Rejeitado por %s.", actor.Name))
		deps.Log.Info("receipt rejected", "receipt", receiptID, "moderator", actor.Name)

	case "edit":
		openEditModal(s, i, deps, receiptID)

	case "pay":
		r, err := deps.Workflow.Pay(ctx, receiptID, actor)
		if err != nil {
			respondClaimError(s, i, deps, err)
			return
		}
		updateAnnouncement(s, i, deps, r, fmt.Sprintf("💰 Pago por %s.", actor.Name))
		deps.Log.Info("receipt paid", "receipt", receiptID, "moderator", actor.Name)

	case "payall":
		r, err := deps.Store.FindReceipt(ctx, receiptID)
		if err != nil {
			respondClaimError(s, i, deps, err)
			return
		}
		archive, err := deps.Workflow.PayAll(ctx, r.ChannelID, r.PlayerName, actor)
		if err != nil {
			respondClaimError(s, i, deps, err)
			return
		}
		// The channel cleanup already removed the announcement; just confirm.
		respondEphemeral(s, i, deps.Log, fmt.Sprintf(
			"Acerto de %s finalizado: %d serviços, $%s.",
			archive.PlayerName, archive.ServiceCount, archive.Total.StringFixed(2)))
		deps.Log.Info("ledger settled", "player", archive.PlayerName, "moderator", actor.Name)
	}
}

func openEditModal(s *discordgo.Session, i *discordgo.InteractionCreate, deps *Deps, receiptID string) {
	// Gate up front so a member without the role gets a denial instead of an
	// empty modal round-trip.
	actor := workflow.Actor{ID: callerID(i), Name: callerName(i), Roles: callerRoles(i)}
	if !deps.Workflow.Allowed(permissions.ActionEdit, actor.Roles) {
		respondClaimError(s, i, deps, permissions.ErrDenied)
		return
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: "claim:editqty:" + receiptID,
			Title:    "Corrigir quantidade",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    "quantity",
							Label:       "Nova quantidade",
							Style:       discordgo.TextInputShort,
							Placeholder: "ex: 150",
							Required:    true,
							MaxLength:   8,
						},
					},
				},
			},
		},
	})
	if err != nil {
		if IsExpiredInteraction(err) {
			deps.Log.Warn("edit modal expired", "receipt", receiptID)
			return
		}
		deps.Log.Error("failed to open edit modal", "error", err)
	}
}

func handleEditModal(s *discordgo.Session, i *discordgo.InteractionCreate, deps *Deps, receiptID string) {
	raw := strings.TrimSpace(modalValue(i, "quantity"))
	quantity, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || quantity <= 0 {
		respondEphemeral(s, i, deps.Log, "Quantidade inválida. Informe um número inteiro positivo.")
		return
	}

	actor := workflow.Actor{ID: callerID(i), Name: callerName(i), Roles: callerRoles(i)}
	r, err := deps.Workflow.EditQuantity(context.Background(), receiptID, quantity, actor)
	if err != nil {
		respondClaimError(s, i, deps, err)
		return
	}

	updateAnnouncement(s, i, deps, r, fmt.Sprintf(
		"✏️ Quantidade corrigida de %d para %d por %s.", r.OriginalQuantity, r.Quantity, actor.Name))
	deps.Log.Info("receipt edited", "receipt", receiptID, "quantity", quantity, "moderator", actor.Name)
}

// updateAnnouncement rewrites the receipt announcement the interaction came
// from so its text and buttons track the new workflow state.
func updateAnnouncement(s *discordgo.Session, i *discordgo.InteractionCreate, deps *Deps, r *store.Receipt, note string) {
	content := workflow.ReceiptAnnouncement(r) + "\n" + note
	components := ClaimButtons(r)
	if components == nil {
		components = []discordgo.MessageComponent{}
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: components,
		},
	})
	if err == nil {
		return
	}
	if IsExpiredInteraction(err) {
		deps.Log.Warn("announcement update expired", "receipt", r.ID)
		return
	}

	// Modal submissions cannot always update the originating message through
	// the interaction response; fall back to a direct edit plus an ephemeral
	// confirmation.
	if i.Message != nil {
		if _, editErr := s.ChannelMessageEditComplex(&discordgo.MessageEdit{
			ID:         i.Message.ID,
			Channel:    i.ChannelID,
			Content:    &content,
			Components: components,
		}); editErr != nil {
			deps.Log.Error("failed to edit announcement", "receipt", r.ID, "error", editErr)
		}
	}
	respondEphemeral(s, i, deps.Log, note)
}

func respondClaimError(s *discordgo.Session, i *discordgo.InteractionCreate, deps *Deps, err error) {
	switch {
	case errors.Is(err, permissions.ErrDenied):
		respondEphemeral(s, i, deps.Log, "Você não tem permissão para essa ação.")
	case errors.Is(err, workflow.ErrBadState):
		respondEphemeral(s, i, deps.Log, "Esse recibo não está mais nesse estado. Atualize a mensagem.")
	case errors.Is(err, store.ErrNotFound):
		respondEphemeral(s, i, deps.Log, "Recibo não encontrado.")
	default:
		deps.Log.Error("claim action failed", "error", err)
		respondEphemeral(s, i, deps.Log, "A ação falhou. Tente novamente.")
	}
}
