package agent

import (
	"math/rand/v2"

	"github.com/zefa-finance/zefa-backend/internal/prompts"
	"github.com/zefa-finance/zefa-backend/internal/tools"
)

var confirmationTitles = []string{
	"Tá na mão.",
	"Fechado.",
	"Pronto.",
	"Registrado.",
	"Anotado.",
	"Feito.",
	"Concluído.",
	"Salvo.",
}

var confirmationSubtitlesExpense = []string{
	"Despesa registrada pra você não perder o controle.",
	"Gasto anotado com sucesso.",
	"Despesa salva no seu histórico.",
	"Registrei essa despesa pra você.",
}

var confirmationSubtitlesIncome = []string{
	"Receita registrada pra você acompanhar.",
	"Entrada anotada com sucesso.",
	"Receita salva no seu histórico.",
	"Registrei essa receita pra você.",
}

// randIntN is swapped out in tests for determinism.
var randIntN = rand.IntN

func confirmationTitle() string {
	return confirmationTitles[randIntN(len(confirmationTitles))]
}

func confirmationSubtitle(isIncome bool) string {
	if isIncome {
		return confirmationSubtitlesIncome[randIntN(len(confirmationSubtitlesIncome))]
	}
	return confirmationSubtitlesExpense[randIntN(len(confirmationSubtitlesExpense))]
}

// fallbackContent picks a confirmation when the model produced no text
// after running tools. Updates outrank deletes outrank creates so the
// user hears about the most consequential mutation of the turn.
func fallbackContent(successfulTools []string) string {
	has := func(name string) bool {
		for _, t := range successfulTools {
			if t == name {
				return true
			}
		}
		return false
	}
	switch {
	case has(tools.ToolUpdateTransaction):
		return prompts.FallbackUpdated
	case has(tools.ToolDeleteTransaction):
		return prompts.FallbackDeleted
	case has(tools.ToolCreateTransaction):
		return prompts.FallbackCreated
	default:
		return prompts.FallbackGeneric
	}
}
