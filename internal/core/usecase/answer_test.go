package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/opendoors/invoice-agent/internal/core/domain"
)

func TestComposeUnsupportedNeverCallsGenerator(t *testing.T) {
	gen := &fakeGenerator{}
	composer := NewAnswerComposer(gen, nil)

	state := domain.NewAgentState("cuentame un chiste")
	state.Task = domain.TaskUnsupported

	answer, err := composer.Compose(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != unsupportedAnswer {
		t.Fatalf("expected fixed unsupported answer, got %q", answer)
	}
	if len(gen.prompts) != 0 {
		t.Fatalf("unsupported path must not call the generator")
	}
}

func TestComposeBalanceFormatsTotals(t *testing.T) {
	gen := &fakeGenerator{}
	composer := NewAnswerComposer(gen, nil)

	state := domain.NewAgentState("cual es el balance general?")
	state.Task = domain.TaskBalanceCalculation
	state.IncomeTotal = 1000
	state.ExpenseTotal = 400

	answer, err := composer.Compose(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, needle := range []string{"$1000.00", "$400.00", "**Balance General: $600.00**"} {
		if !strings.Contains(answer, needle) {
			t.Fatalf("balance answer missing %q:\n%s", needle, answer)
		}
	}
	if len(gen.prompts) != 0 {
		t.Fatalf("balance path must be deterministic, generator was called")
	}
}

func TestComposeEmptyResultsUsesFixedAnswer(t *testing.T) {
	gen := &fakeGenerator{}
	composer := NewAnswerComposer(gen, nil)

	state := domain.NewAgentState("facturas de joni")
	state.Task = domain.TaskSimpleSearch

	answer, err := composer.Compose(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != noResultsAnswer {
		t.Fatalf("expected fixed no-results answer, got %q", answer)
	}
}

func TestComposeSummarizesRetrievedInvoices(t *testing.T) {
	gen := &fakeGenerator{
		generateFn: func(string) (string, error) { return "Joni gastó $500 en total.", nil },
	}
	composer := NewAnswerComposer(gen, nil)

	state := domain.NewAgentState("cuanto gasto joni?")
	state.Task = domain.TaskSimpleSearch
	state.Results = []domain.InvoiceRecord{
		{
			VendorName:   "ACME",
			InvoiceDate:  "2024-03-01",
			InvoiceTotal: 500,
			InvoiceType:  domain.TypeExpense,
			PartnerName:  "JONI",
			Content:      `{"InvoiceTotal":500}`,
		},
	}

	answer, err := composer.Compose(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "Joni gastó $500 en total." {
		t.Fatalf("unexpected answer: %q", answer)
	}

	prompt := gen.prompts[0]
	for _, needle := range []string{"cuanto gasto joni?", "ACME", "JONI"} {
		if !strings.Contains(prompt, needle) {
			t.Fatalf("summary prompt missing %q:\n%s", needle, prompt)
		}
	}
}
