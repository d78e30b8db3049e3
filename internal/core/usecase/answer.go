package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/opendoors/invoice-agent/internal/core/domain"
	"github.com/opendoors/invoice-agent/internal/core/ports"
)

// Fixed answers for the paths that never reach the generation service.
// Wording follows the accounting team's Spanish-speaking user base.
const (
	noResultsAnswer = "No encontré información relevante para tu pregunta. Intenta ser más específico."

	unsupportedAnswer = "No estoy seguro de cómo procesar esa pregunta. " +
		"Por favor, intenta preguntarme sobre gastos, ingresos o un balance general."
)

// AnswerComposer turns the accumulated agent state into the final answer
// text. Only the simple-search-with-results branch calls the generation
// service; every other branch is deterministic.
type AnswerComposer struct {
	gen ports.TextGenerator
	log *slog.Logger
}

func NewAnswerComposer(gen ports.TextGenerator, log *slog.Logger) *AnswerComposer {
	if log == nil {
		log = slog.Default()
	}
	return &AnswerComposer{gen: gen, log: log}
}

func (c *AnswerComposer) Compose(ctx context.Context, state *domain.AgentState) (string, error) {
	if state.Task == domain.TaskUnsupported {
		return unsupportedAnswer, nil
	}

	if state.Task.NeedsAggregation() {
		return balanceAnswer(state.IncomeTotal, state.ExpenseTotal), nil
	}

	if len(state.Results) == 0 {
		return noResultsAnswer, nil
	}

	answer, err := c.gen.Generate(ctx, buildSummaryPrompt(state.Question, state.Results))
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return answer, nil
}

func balanceAnswer(income, expense float64) string {
	balance := income - expense
	return fmt.Sprintf(
		"He calculado el balance general basado en todas las facturas:\n"+
			"- Total de Ingresos: $%.2f\n"+
			"- Total de Egresos: $%.2f\n"+
			"-----------------------------------\n"+
			"**Balance General: $%.2f**",
		income, expense, balance,
	)
}

func buildSummaryPrompt(question string, records []domain.InvoiceRecord) string {
	var contextBuilder strings.Builder
	for idx, record := range records {
		contextBuilder.WriteString(fmt.Sprintf(
			"[%d] vendor=%s date=%s total=%.2f type=%s partner=%s\n%s\n\n",
			idx+1,
			record.VendorName,
			record.InvoiceDate,
			record.InvoiceTotal,
			record.InvoiceType,
			record.PartnerName,
			record.Content,
		))
	}

	return fmt.Sprintf(`You are a friendly, direct accounting assistant. Answer the user question based only on the invoice data provided below.
Summarize the information clearly and, when there are amounts, add them up to give a total. Answer in the language of the question.

User question: %s

Invoice data found:
%s`, question, contextBuilder.String())
}
