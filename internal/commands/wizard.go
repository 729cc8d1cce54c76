package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/fazendarp/fazendabot/internal/config"
	"github.com/fazendarp/fazendabot/internal/session"
	"github.com/fazendarp/fazendabot/internal/store"
	"github.com/fazendarp/fazendabot/internal/workflow"
)

// otherCropValue marks the "outro" select option that opens the free-text
// crop name input.
const otherCropValue = "__other__"

// Deps is everything the interaction handlers need. StartEvidence hands a
// completed wizard to the evidence pipeline, which runs outside the
// interaction round-trip.
type Deps struct {
	Sessions *session.Store
	Store    *store.Store
	Economy  *config.Economy
	Workflow *workflow.Workflow
	Log      *slog.Logger

	StartEvidence func(s *discordgo.Session, sess *session.Session, channelID string)
}

// HandleService starts the submission wizard for /servico.
func HandleService(s *discordgo.Session, i *discordgo.InteractionCreate, deps *Deps) {
	sess, err := deps.Sessions.Start(i.GuildID, callerID(i))
	if err != nil {
		if errors.Is(err, session.ErrSessionActive) {
			respondEphemeral(s, i, deps.Log, "Você já tem um registro em andamento. Conclua ou cancele antes de abrir outro.")
			return
		}
		deps.Log.Error("failed to start session", "error", err)
		respondEphemeral(s, i, deps.Log, "Não foi possível iniciar o registro. Tente novamente.")
		return
	}

	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Animais",
					Style:    discordgo.PrimaryButton,
					CustomID: "svc:type:animal:" + sess.ID,
				},
				discordgo.Button{
					Label:    "Plantação",
					Style:    discordgo.SuccessButton,
					CustomID: "svc:type:plant:" + sess.ID,
				},
				discordgo.Button{
					Label:    "Cancelar",
					Style:    discordgo.DangerButton,
					CustomID: "svc:cancel:" + sess.ID,
				},
			},
		},
	}
	respondStep(s, i, deps.Log, false, "Qual serviço você prestou?", components)
}

// HandleHistory answers /historico with the caller's summary and latest
// receipts, visible only to them.
func HandleHistory(s *discordgo.Session, i *discordgo.InteractionCreate, deps *Deps) {
	ctx := context.Background()
	player := callerName(i)

	sum, err := deps.Store.GetSummary(ctx, player)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondEphemeral(s, i, deps.Log, "Você ainda não registrou nenhum serviço.")
			return
		}
		deps.Log.Error("failed to load summary", "player", player, "error", err)
		respondEphemeral(s, i, deps.Log, "Não foi possível carregar seu histórico.")
		return
	}

	receipts, err := deps.Store.ListPlayerReceipts(ctx, player)
	if err != nil {
		deps.Log.Error("failed to list receipts", "player", player, "error", err)
		respondEphemeral(s, i, deps.Log, "Não foi possível carregar seu histórico.")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Histórico de %s**\n", player)
	fmt.Fprintf(&b, "Ganhos totais: $%s | Serviços: %d (animais: %d, plantação: %d)\n\n",
		sum.TotalEarnings.StringFixed(2), sum.TotalServices, sum.AnimalServices, sum.PlantServices)

	limit := 10
	for idx, r := range receipts {
		if idx >= limit {
			fmt.Fprintf(&b, "… e mais %d serviços.\n", len(receipts)-limit)
			break
		}
		fmt.Fprintf(&b, "`%s` %s — $%s — %s\n", r.ID, serviceLabel(&r), r.PlayerPayment.StringFixed(2), r.Status)
	}
	respondEphemeral(s, i, deps.Log, b.String())
}

// HandleComponent routes button and select interactions by custom ID prefix.
func HandleComponent(s *discordgo.Session, i *discordgo.InteractionCreate, deps *Deps) {
	parts := strings.Split(i.MessageComponentData().CustomID, ":")
	switch parts[0] {
	case "svc":
		handleWizardComponent(s, i, deps, parts)
	case "claim":
		handleClaimComponent(s, i, deps, parts)
	}
}

func handleWizardComponent(s *discordgo.Session, i *discordgo.InteractionCreate, deps *Deps, parts []string) {
	if len(parts) < 3 {
		return
	}
	step := parts[1]
	sessID := parts[len(parts)-1]

	switch step {
	case "cancel":
		if _, err := deps.Sessions.Get(sessID, callerID(i)); err != nil {
			respondWizardError(s, i, deps, err)
			return
		}
		deps.Sessions.End(sessID)
		respondStep(s, i, deps.Log, true, "Registro cancelado.", []discordgo.MessageComponent{})

	case "type":
		serviceType := parts[2]
		if serviceType != store.ServiceAnimal && serviceType != store.ServicePlant {
			return
		}
		if !requireState(s, i, deps, sessID, session.StateServiceType) {
			return
		}
		sess, err := deps.Sessions.Advance(sessID, callerID(i), func(sess *session.Session) error {
			sess.ServiceType = serviceType
			return nil
		})
		if err != nil {
			respondWizardError(s, i, deps, err)
			return
		}
		respondStep(s, i, deps.Log, true, itemPrompt(sess), []discordgo.MessageComponent{itemSelect(sess, deps.Economy)})

	case "item":
		values := i.MessageComponentData().Values
		if len(values) != 1 {
			return
		}
		chosen := values[0]

		if !requireState(s, i, deps, sessID, session.StateItem) {
			return
		}
		sess, err := deps.Sessions.Advance(sessID, callerID(i), func(sess *session.Session) error {
			if chosen == otherCropValue {
				sess.CustomPlant = true
				return nil
			}
			sess.ItemType = chosen
			return nil
		})
		if err != nil {
			respondWizardError(s, i, deps, err)
			return
		}

		if sess.State == session.StateQuantity {
			openQuantityModal(s, i, deps, sess)
			return
		}

		// Animal claims skip the quantity step and go straight to evidence.
		requestEvidence(s, i, deps, sess)

	case "qtyretry":
		// Re-prompt after an invalid quantity input; the session never left
		// the quantity step.
		sess, err := deps.Sessions.Get(sessID, callerID(i))
		if err != nil {
			respondWizardError(s, i, deps, err)
			return
		}
		if sess.State != session.StateQuantity {
			respondEphemeral(s, i, deps.Log, "Esse passo não é válido agora.")
			return
		}
		openQuantityModal(s, i, deps, sess)
	}
}

// requireState checks that a wizard session exists, belongs to the caller and
// sits at the expected step. Stale component clicks are answered, not acted
// on.
func requireState(s *discordgo.Session, i *discordgo.InteractionCreate, deps *Deps, sessID string, want session.State) bool {
	sess, err := deps.Sessions.Get(sessID, callerID(i))
	if err != nil {
		respondWizardError(s, i, deps, err)
		return false
	}
	if sess.State != want {
		respondEphemeral(s, i, deps.Log, "Esse passo não é válido agora.")
		return false
	}
	return true
}

// HandleModalSubmit routes modal submissions: the wizard quantity modal and
// the moderator edit modal.
func HandleModalSubmit(s *discordgo.Session, i *discordgo.InteractionCreate, deps *Deps) {
	data := i.ModalSubmitData()
	parts := strings.Split(data.CustomID, ":")
	if len(parts) < 3 {
		return
	}

	switch parts[0] + ":" + parts[1] {
	case "svc:qty":
		handleQuantityModal(s, i, deps, parts[2])
	case "claim:editqty":
		handleEditModal(s, i, deps, parts[2])
	}
}

func handleQuantityModal(s *discordgo.Session, i *discordgo.InteractionCreate, deps *Deps, sessID string) {
	if !requireState(s, i, deps, sessID, session.StateQuantity) {
		return
	}

	quantityRaw := modalValue(i, "quantity")
	plantName := strings.TrimSpace(modalValue(i, "plant_name"))

	quantity, err := strconv.ParseInt(strings.TrimSpace(quantityRaw), 10, 64)
	if err != nil || quantity <= 0 {
		// Invalid input does not advance the wizard; the retry button reopens
		// the modal.
		respondStep(s, i, deps.Log, false,
			"Quantidade inválida. Informe um número inteiro positivo.",
			[]discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							Label:    "Tentar novamente",
							Style:    discordgo.PrimaryButton,
							CustomID: "svc:qtyretry:" + sessID,
						},
					},
				},
			})
		return
	}

	sess, err := deps.Sessions.Advance(sessID, callerID(i), func(sess *session.Session) error {
		sess.Quantity = quantity
		if sess.CustomPlant {
			if plantName == "" {
				return fmt.Errorf("nome da planta é obrigatório")
			}
			sess.ItemType = plantName
		}
		return nil
	})
	if err != nil {
		respondWizardError(s, i, deps, err)
		return
	}

	requestEvidence(s, i, deps, sess)
}

// requestEvidence is the wizard's final step for every service type.
func requestEvidence(s *discordgo.Session, i *discordgo.InteractionCreate, deps *Deps, sess *session.Session) {
	respondEphemeral(s, i, deps.Log, fmt.Sprintf(
		"Quase lá! Envie neste canal um print (imagem, máx. 5 MB) comprovando o serviço nos próximos %d segundos.",
		int(deps.Economy.EvidenceTimeout.Seconds())))

	deps.StartEvidence(s, sess, i.ChannelID)
}

func openQuantityModal(s *discordgo.Session, i *discordgo.InteractionCreate, deps *Deps, sess *session.Session) {
	inputs := []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    "quantity",
					Label:       "Quantidade depositada",
					Style:       discordgo.TextInputShort,
					Placeholder: "ex: 200",
					Required:    true,
					MaxLength:   8,
				},
			},
		},
	}
	if sess.CustomPlant {
		inputs = append(inputs, discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    "plant_name",
					Label:       "Nome da planta",
					Style:       discordgo.TextInputShort,
					Placeholder: "ex: Cacau",
					Required:    true,
					MaxLength:   50,
				},
			},
		})
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   "svc:qty:" + sess.ID,
			Title:      "Detalhes do depósito",
			Components: inputs,
		},
	})
	if err != nil {
		if IsExpiredInteraction(err) {
			deps.Log.Warn("quantity modal expired", "session", sess.ID)
			return
		}
		deps.Log.Error("failed to open quantity modal", "error", err)
	}
}

func itemPrompt(sess *session.Session) string {
	if sess.ServiceType == store.ServiceAnimal {
		return "Qual animal você entregou?"
	}
	return "Qual cultura você depositou?"
}

func itemSelect(sess *session.Session, eco *config.Economy) discordgo.MessageComponent {
	var options []discordgo.SelectMenuOption
	if sess.ServiceType == store.ServiceAnimal {
		for _, name := range eco.AnimalTypes {
			options = append(options, discordgo.SelectMenuOption{Label: name, Value: name})
		}
	} else {
		for _, name := range eco.PlantTypes {
			options = append(options, discordgo.SelectMenuOption{Label: name, Value: name})
		}
		options = append(options, discordgo.SelectMenuOption{Label: "Outro…", Value: otherCropValue})
	}

	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				CustomID: "svc:item:" + sess.ID,
				Options:  options,
			},
		},
	}
}

func respondWizardError(s *discordgo.Session, i *discordgo.InteractionCreate, deps *Deps, err error) {
	switch {
	case errors.Is(err, session.ErrNotOwner):
		respondEphemeral(s, i, deps.Log, "Esse registro pertence a outro membro.")
	case errors.Is(err, session.ErrNoSession):
		respondEphemeral(s, i, deps.Log, "Esse registro não está mais ativo. Use /servico para começar de novo.")
	case errors.Is(err, session.ErrBadTransition):
		respondEphemeral(s, i, deps.Log, "Esse passo não é válido agora.")
	default:
		respondEphemeral(s, i, deps.Log, err.Error())
	}
}

func modalValue(i *discordgo.InteractionCreate, customID string) string {
	for _, component := range i.ModalSubmitData().Components {
		actionRow, ok := component.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, c := range actionRow.Components {
			if input, ok := c.(*discordgo.TextInput); ok && input.CustomID == customID {
				return input.Value
			}
		}
	}
	return ""
}

func serviceLabel(r *store.Receipt) string {
	if r.ServiceType == store.ServiceAnimal {
		return fmt.Sprintf("%dx %s", r.Quantity, r.AnimalType)
	}
	return fmt.Sprintf("%dx %s", r.Quantity, r.PlantName)
}
