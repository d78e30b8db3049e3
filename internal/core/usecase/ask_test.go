package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/opendoors/invoice-agent/internal/core/domain"
)

// scriptedGenerator answers the router call first, then the filter call,
// then any summary call, mirroring the order of generation calls in a run.
type scriptedGenerator struct {
	responses []string
	prompts   []string
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if len(g.responses) == 0 {
		return "", errors.New("no scripted response left")
	}
	response := g.responses[0]
	g.responses = g.responses[1:]
	return response, nil
}

func newAsk(gen *scriptedGenerator, index *fakeIndex, conversations *fakeConversations) *AskQuestionUseCase {
	router := NewQuestionRouter(gen, nil)
	filters := NewFilterSynthesizer(gen, testPartners, nil)
	aggregator := NewAggregator(index, nil)
	composer := NewAnswerComposer(gen, nil)
	return NewAskQuestionUseCase(router, filters, aggregator, composer, index, conversations, nil)
}

func TestAskSimpleSearchRetrievesAndSummarizes(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"simple_search",
		"PartnerName eq 'JONI'",
		"Joni tiene 2 facturas.",
	}}
	index := &fakeIndex{
		queryFn: func(string) ([]domain.InvoiceRecord, error) {
			return []domain.InvoiceRecord{
				{ID: "invoice_1", Content: `{"InvoiceTotal":100}`},
				{ID: "invoice_2", Content: `{"InvoiceTotal":200}`},
			}, nil
		},
	}
	uc := newAsk(gen, index, nil)

	answer, err := uc.Ask(context.Background(), "facturas de joni", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.Task != domain.TaskSimpleSearch || answer.RetrievedCount != 2 {
		t.Fatalf("unexpected answer envelope: %+v", answer)
	}
	if answer.Text != "Joni tiene 2 facturas." {
		t.Fatalf("unexpected answer text: %q", answer.Text)
	}
	if index.queryFilters[0] != "PartnerName eq 'JONI'" {
		t.Fatalf("synthesized filter not forwarded: %q", index.queryFilters[0])
	}
}

func TestAskSimpleSearchWithoutFilterSkipsRetrieval(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"simple_search",
		domain.NoFilter,
	}}
	index := &fakeIndex{}
	uc := newAsk(gen, index, nil)

	answer, err := uc.Ask(context.Background(), "dame datos", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(index.queryFilters) != 0 {
		t.Fatalf("no filter means no retrieval, queries: %v", index.queryFilters)
	}
	if answer.Text != noResultsAnswer || answer.RetrievedCount != 0 {
		t.Fatalf("expected fixed no-results answer, got %+v", answer)
	}
}

func TestAskBalanceAggregatesBothTypesInOrder(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"balance_calculation"}}
	index := &fakeIndex{
		queryFn: func(filter string) ([]domain.InvoiceRecord, error) {
			if strings.Contains(filter, "ingreso") {
				return []domain.InvoiceRecord{{Content: `{"InvoiceTotal":1000}`}}, nil
			}
			return []domain.InvoiceRecord{{Content: `{"InvoiceTotal":400}`}}, nil
		},
	}
	uc := newAsk(gen, index, nil)

	answer, err := uc.Ask(context.Background(), "cual es el balance general?", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(answer.Text, "**Balance General: $600.00**") {
		t.Fatalf("unexpected balance answer: %q", answer.Text)
	}
	if len(index.queryFilters) != 2 ||
		!strings.Contains(index.queryFilters[0], "ingreso") ||
		!strings.Contains(index.queryFilters[1], "egreso") {
		t.Fatalf("expected income then expense retrieval, got %v", index.queryFilters)
	}
}

func TestAskUnsupportedSkipsRetrievalEntirely(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"chit_chat"}}
	index := &fakeIndex{}
	uc := newAsk(gen, index, nil)

	answer, err := uc.Ask(context.Background(), "cuentame un chiste", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.Task != domain.TaskUnsupported || answer.Text != unsupportedAnswer {
		t.Fatalf("unexpected unsupported answer: %+v", answer)
	}
	if len(index.queryFilters) != 0 || len(index.countFilters) != 0 {
		t.Fatalf("unsupported question must not touch the index")
	}
}

func TestAskRejectsBlankQuestion(t *testing.T) {
	uc := newAsk(&scriptedGenerator{}, &fakeIndex{}, nil)

	_, err := uc.Ask(context.Background(), "   ", "")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input error, got %v", err)
	}
}

func TestAskPersistsConversationExchange(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"chit_chat"}}
	conversations := &fakeConversations{}
	uc := newAsk(gen, &fakeIndex{}, conversations)

	if _, err := uc.Ask(context.Background(), "hola", "conv-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conversations.messages) != 2 {
		t.Fatalf("expected user+assistant messages, got %d", len(conversations.messages))
	}
	if conversations.messages[0].Role != domain.RoleUser || conversations.messages[1].Role != domain.RoleAssistant {
		t.Fatalf("unexpected roles: %+v", conversations.messages)
	}
	if conversations.messages[0].ConversationID != "conv-1" {
		t.Fatalf("conversation id not propagated")
	}
}

func TestAskToleratesConversationStoreFailure(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"chit_chat"}}
	conversations := &fakeConversations{appendErr: errors.New("db down")}
	uc := newAsk(gen, &fakeIndex{}, conversations)

	answer, err := uc.Ask(context.Background(), "hola", "conv-1")
	if err != nil {
		t.Fatalf("history persistence must be best effort, got %v", err)
	}
	if answer.Text != unsupportedAnswer {
		t.Fatalf("unexpected answer: %q", answer.Text)
	}
}
