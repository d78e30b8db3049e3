package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/opendoors/invoice-agent/internal/core/domain"
	"github.com/opendoors/invoice-agent/internal/core/ports"
)

// QuestionRouter classifies a free-text question into one of the fixed task
// categories via a text-generation call. The classification is closed: any
// label outside the vocabulary routes to the unsupported path.
type QuestionRouter struct {
	gen ports.TextGenerator
	log *slog.Logger
}

func NewQuestionRouter(gen ports.TextGenerator, log *slog.Logger) *QuestionRouter {
	if log == nil {
		log = slog.Default()
	}
	return &QuestionRouter{gen: gen, log: log}
}

func (r *QuestionRouter) Route(ctx context.Context, question string) (domain.TaskCategory, error) {
	raw, err := r.gen.Generate(ctx, buildRoutePrompt(question))
	if err != nil {
		return domain.TaskUnsupported, fmt.Errorf("route question: %w", err)
	}

	task := domain.ParseTaskCategory(strings.TrimSpace(raw))
	if task == domain.TaskUnsupported {
		r.log.Warn("router_label_out_of_vocabulary", "raw_label", strings.TrimSpace(raw))
	} else {
		r.log.Info("question_routed", "task_category", string(task))
	}
	return task, nil
}

func buildRoutePrompt(question string) string {
	return `Classify the user question into exactly one of these categories to decide the plan of action:
simple_search, balance_calculation, general_summary.
- simple_search: questions about income or expenses of a specific partner (Joni, Hernan, etc.), or lists of invoices. Examples: "cuanto gasto joni?", "muestrame los ingresos de hernan", "lista las facturas de egreso".
- balance_calculation: questions asking for an overall balance comparing income and expenses. Examples: "cual es el balance general?", "dame el resultado final".
- general_summary: very open questions asking for a summary of everything. Example: "dame un resumen de la situacion".
Respond ALWAYS AND ONLY with one of the categories.

Question:
` + question
}
