package workflow

import (
	"fmt"
	"strings"

	"github.com/fazendarp/fazendabot/internal/store"
)

func itemName(r *store.Receipt) string {
	if r.ServiceType == store.ServiceAnimal {
		return r.AnimalType
	}
	return r.PlantName
}

// renderLedger builds the running-receipt display for one player's open
// ledger in a channel.
func renderLedger(l *store.Ledger) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", ledgerHeader, l.PlayerName)

	for _, item := range l.Items {
		check := "⬜"
		if item.Paid {
			check = "✅"
		}
		fmt.Fprintf(&b, "%s `%s` — %dx %s — $%s (aprovado por %s)\n",
			check, item.ReceiptID, item.Quantity, item.Item, item.Payment.StringFixed(2), item.ApprovedBy)
	}

	fmt.Fprintf(&b, "\nServiços: %d | Total: $%s", l.ServiceCount, l.Total.StringFixed(2))
	return b.String()
}

// renderSettlement is the terminal summary posted on "pay all".
func renderSettlement(l *store.Ledger, finalizedBy string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s — %s\n", settlementHeader, l.PlayerName)
	fmt.Fprintf(&b, "Serviços acertados: %d\n", l.ServiceCount)
	fmt.Fprintf(&b, "Total pago: $%s\n", l.Total.StringFixed(2))
	fmt.Fprintf(&b, "Finalizado por: %s", finalizedBy)
	return b.String()
}

// ReceiptAnnouncement is the channel message that carries the approval
// buttons for a fresh receipt.
func ReceiptAnnouncement(r *store.Receipt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🧾 Recibo `%s` — %s\n", r.ID, r.PlayerName)

	if r.ServiceType == store.ServiceAnimal {
		fmt.Fprintf(&b, "Serviço: entrega de %d animais (%s)\n", r.Quantity, r.AnimalType)
		fmt.Fprintf(&b, "Renda: $%s | Custo: $%s | Lucro: $%s\n",
			r.FarmIncome.StringFixed(2), r.FarmCost.StringFixed(2), r.FarmProfit.StringFixed(2))
		if r.PlayerDebt.IsPositive() {
			fmt.Fprintf(&b, "Dívida do jogador: $%s\n", r.PlayerDebt.StringFixed(2))
		}
		if r.Penalty.IsPositive() {
			fmt.Fprintf(&b, "Multa: $%s\n", r.Penalty.StringFixed(2))
		}
	} else {
		fmt.Fprintf(&b, "Serviço: depósito de %dx %s\n", r.Quantity, r.PlantName)
	}

	fmt.Fprintf(&b, "Pagamento: $%s\n", r.PlayerPayment.StringFixed(2))
	if r.VerificationMessage != "" {
		fmt.Fprintf(&b, "Verificação: %s\n", r.VerificationMessage)
	}
	if r.AutoAccept {
		b.WriteString("Verificação automática: ✅")
	} else {
		b.WriteString("Revisão manual necessária: ⚠️")
	}
	return b.String()
}

func containsMarker(content, marker string) bool {
	return strings.Contains(content, marker)
}
