package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opendoors/invoice-agent/internal/core/domain"
	"github.com/opendoors/invoice-agent/internal/core/ports"
)

// AskQuestionUseCase drives one question through an explicit finite-state
// dispatch: route -> (simple | balance | unsupported) -> compose. The state
// struct is threaded through the stages in order; there is no fan-out, the
// two balance retrievals run strictly in sequence.
type AskQuestionUseCase struct {
	router        *QuestionRouter
	filters       *FilterSynthesizer
	aggregator    *Aggregator
	composer      *AnswerComposer
	index         ports.InvoiceIndex
	conversations ports.ConversationStore
	log           *slog.Logger
}

func NewAskQuestionUseCase(
	router *QuestionRouter,
	filters *FilterSynthesizer,
	aggregator *Aggregator,
	composer *AnswerComposer,
	index ports.InvoiceIndex,
	conversations ports.ConversationStore,
	log *slog.Logger,
) *AskQuestionUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &AskQuestionUseCase{
		router:        router,
		filters:       filters,
		aggregator:    aggregator,
		composer:      composer,
		index:         index,
		conversations: conversations,
		log:           log,
	}
}

func (uc *AskQuestionUseCase) Ask(ctx context.Context, question, conversationID string) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask question", fmt.Errorf("question is empty"))
	}

	state := domain.NewAgentState(question)

	task, err := uc.router.Route(ctx, question)
	if err != nil {
		return nil, err
	}
	state.Task = task

	switch {
	case state.Task == domain.TaskSimpleSearch:
		if err := uc.runSimpleSearch(ctx, state); err != nil {
			return nil, err
		}
	case state.Task.NeedsAggregation():
		if err := uc.runBalance(ctx, state); err != nil {
			return nil, err
		}
	}

	answerText, err := uc.composer.Compose(ctx, state)
	if err != nil {
		return nil, err
	}
	state.FinalAnswer = answerText

	answer := &domain.Answer{
		Text:           state.FinalAnswer,
		Task:           state.Task,
		RetrievedCount: len(state.Results),
	}
	uc.recordExchange(ctx, conversationID, question, answer.Text)
	return answer, nil
}

func (uc *AskQuestionUseCase) runSimpleSearch(ctx context.Context, state *domain.AgentState) error {
	filter, err := uc.filters.Synthesize(ctx, state.Question)
	if err != nil {
		return err
	}
	state.Filter = filter
	if filter == "" {
		// No confident filter: skip retrieval, the composer answers with the
		// fixed no-results message.
		return nil
	}

	results, err := uc.index.Query(ctx, filter)
	if err != nil {
		return fmt.Errorf("execute search: %w", err)
	}
	state.Results = results
	uc.log.Info("search_executed", "filter", filter, "results", len(results))
	return nil
}

func (uc *AskQuestionUseCase) runBalance(ctx context.Context, state *domain.AgentState) error {
	income, err := uc.aggregator.TotalForType(ctx, domain.TypeIncome)
	if err != nil {
		return err
	}
	state.IncomeTotal = income

	expense, err := uc.aggregator.TotalForType(ctx, domain.TypeExpense)
	if err != nil {
		return err
	}
	state.ExpenseTotal = expense
	return nil
}

// recordExchange persists the question/answer pair. History is best effort:
// a storage failure is logged, never surfaced to the caller.
func (uc *AskQuestionUseCase) recordExchange(ctx context.Context, conversationID, question, answer string) {
	if uc.conversations == nil || conversationID == "" {
		return
	}
	now := time.Now().UTC()
	messages := []domain.ConversationMessage{
		{ID: uuid.NewString(), ConversationID: conversationID, Role: domain.RoleUser, Content: question, CreatedAt: now},
		{ID: uuid.NewString(), ConversationID: conversationID, Role: domain.RoleAssistant, Content: answer, CreatedAt: now},
	}
	for _, message := range messages {
		if err := uc.conversations.AppendMessage(ctx, message); err != nil {
			uc.log.Warn("conversation_append_failed", "conversation_id", conversationID, "error", err)
			return
		}
	}
}
