// Package submission turns a verified claim into a settled receipt. It is the
// single entry point shared by the chat wizard and the HTTP submission
// endpoint.
package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fazendarp/fazendabot/internal/config"
	"github.com/fazendarp/fazendabot/internal/settle"
	"github.com/fazendarp/fazendabot/internal/store"
	"github.com/fazendarp/fazendabot/internal/verify"
)

// ErrRejected means the evidence contradicts the claim. The wrapped message
// is member-facing; no receipt is created.
var ErrRejected = errors.New("claim rejected by verification")

// Claim is a completed wizard or form submission, ready for verification.
type Claim struct {
	PlayerName  string
	ServiceType string // store.ServiceAnimal or store.ServicePlant
	ItemType    string
	Quantity    int64
	CustomPlant bool

	GuildID   string
	ChannelID string
	MemberID  string
}

type Builder struct {
	Verifier *verify.Verifier
	Economy  *config.Economy
}

// Build verifies the claim against the screenshot and computes its
// settlement. An inconclusive verification still yields a receipt, flagged
// for mandatory human review; only evidence that contradicts the claim is
// ErrRejected.
func (b *Builder) Build(ctx context.Context, claim Claim, receiptID, screenshotPath string) (*store.Receipt, error) {
	r := &store.Receipt{
		ID:             receiptID,
		Timestamp:      time.Now(),
		PlayerName:     claim.PlayerName,
		ServiceType:    claim.ServiceType,
		Status:         store.StatusPendingApproval,
		ScreenshotPath: screenshotPath,
		GuildID:        claim.GuildID,
		ChannelID:      claim.ChannelID,
		MemberID:       claim.MemberID,
	}

	switch claim.ServiceType {
	case store.ServiceAnimal:
		out := b.Verifier.Animal(ctx, screenshotPath)
		r.AnimalType = claim.ItemType
		r.ExtractedText = out.ExtractedText
		r.VerificationMessage = out.Message

		if out.CannotVerify {
			return r, nil
		}
		if !out.Valid {
			return nil, fmt.Errorf("%w: %s", ErrRejected, out.Message)
		}

		calc := settle.CalculateAnimal(out.FarmIncome, b.Economy)
		r.Quantity = out.Quantity
		r.FarmIncome = calc.FarmIncome
		r.FarmCost = calc.FarmCost
		r.FarmProfit = calc.FarmProfit
		r.PlayerPayment = calc.PlayerPayment
		r.Penalty = calc.Penalty
		r.PlayerDebt = calc.PlayerDebt

	case store.ServicePlant:
		if claim.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantidade inválida", ErrRejected)
		}

		out := b.Verifier.Plant(ctx, screenshotPath, claim.ItemType, claim.Quantity)
		r.PlantName = claim.ItemType
		r.CustomPlant = claim.CustomPlant
		r.Quantity = claim.Quantity
		r.ExtractedText = out.ExtractedText
		r.VerificationMessage = out.Message

		if !out.CannotVerify && !out.Valid {
			return nil, fmt.Errorf("%w: %s", ErrRejected, out.Message)
		}

		calc := settle.CalculatePlant(claim.Quantity, claim.ItemType, claim.CustomPlant, b.Economy)
		r.PlayerPayment = calc.PlayerPayment
		r.DetectedQuantity = out.DetectedQuantity
		r.QuantityMatch = out.QuantityMatch
		r.AutoAccept = out.AutoAccept

	default:
		return nil, fmt.Errorf("%w: tipo de serviço desconhecido", ErrRejected)
	}

	return r, nil
}
