package agent

import (
	"strings"

	"github.com/zefa-finance/zefa-backend/internal/llm"
)

// actionKeywords flag messages that need tools: data modification or a
// specific query. Substring match against the lowercased message.
var actionKeywords = []string{
	// create/add
	"criar", "registrar", "adicionar", "create", "add", "register",
	// edit/update
	"alterar", "altera", "mudar", "muda", "editar", "edita", "atualizar", "atualiza",
	"update", "edit", "change", "modify", "modificar",
	// delete/remove
	"deletar", "deleta", "remover", "remove", "excluir", "exclui", "apagar", "apaga",
	"delete", "remove", "exclude",
	// query
	"saldo", "gasto", "gastei", "receita", "despesa", "extrato",
	"quanto", "balance", "transaction", "spending",
	"transação", "transacao",
	"listar", "list", "mostrar", "show", "ver", "ver todas",
}

// financeKeywords gate the context pack. A superset of actionKeywords:
// the pack is attached liberally so the model can give insights even on
// conversational turns, while tools stay reserved for explicit actions.
var financeKeywords = append([]string{
	"fim do mês", "sobrou",
	"análise", "analise", "insight", "resumo", "total", "soma", "média",
	"dinheiro", "valor", "preço", "custo", "pagamento",
	"como estou", "como vai", "situação", "situacao", "status",
	"financeiro", "finanças", "financas", "grana", "reais",
}, actionKeywords...)

// clarificationMarkers identify an assistant turn that asked for missing
// transaction details. The user's short follow-up ("50", "mercado")
// would never trip the keyword heuristic on its own.
var clarificationMarkers = []string{
	"categoria", "descrição", "descricao", "qual foi", "com o quê", "com o que",
	"foi despesa", "foi receita", "entrada ou saída", "entrada ou saida",
	"quando foi", "qual data", "data dessa", "pode confirmar",
}

// ShouldAttachTools decides whether the tool registry goes on the
// request, per the configured mode (always, never, heuristic). Unknown
// modes fall back to the includeContextPack signal.
func ShouldAttachTools(mode, userMessage string, includeContextPack bool) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	case "heuristic":
		return containsAny(strings.ToLower(userMessage), actionKeywords)
	default:
		return includeContextPack
	}
}

// ShouldForceTools reports whether the most recent assistant message was
// a clarification question, in which case tools are attached regardless
// of the current message's wording.
func ShouldForceTools(recent []llm.Message) bool {
	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].Role != "assistant" {
			continue
		}
		return containsAny(strings.ToLower(recent[i].Content), clarificationMarkers)
	}
	return false
}

// WantsContextPack reports whether the message looks finance-related
// enough to justify injecting the context pack.
func WantsContextPack(userMessage string) bool {
	return containsAny(strings.ToLower(userMessage), financeKeywords)
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
