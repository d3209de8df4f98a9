package services

import (
	"mission-rewards-system/models"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Consumer-facing texts are pt-BR; the printer localizes digit grouping and decimals.
var summaryPrinter = message.NewPrinter(language.BrazilianPortuguese)

func decisionSummary(stage models.ValidationStage, res *FinalizationResult, badgeName string) string {
	switch {
	case res.Status.IsRejected():
		return summaryPrinter.Sprintf("Submissão reprovada na etapa %s", string(stage))
	case res.Status == models.StatusFinalizedApproved:
		text := summaryPrinter.Sprintf("Missão aprovada: +%d rifas", res.RifasCredited)
		if res.CashbackCredited > 0 {
			text += summaryPrinter.Sprintf(", R$ %.2f de cashback", res.CashbackCredited)
		}
		if res.BadgeEarned && badgeName != "" {
			text += summaryPrinter.Sprintf(", selo %q conquistado", badgeName)
		}
		return text
	default:
		return summaryPrinter.Sprintf("Submissão aprovada na etapa %s", string(stage))
	}
}
