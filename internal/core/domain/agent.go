package domain

import "time"

// TaskCategory is the closed set of question intents the router can assign.
type TaskCategory string

const (
	TaskSimpleSearch       TaskCategory = "simple_search"
	TaskBalanceCalculation TaskCategory = "balance_calculation"
	TaskGeneralSummary     TaskCategory = "general_summary"
	TaskUnsupported        TaskCategory = "unsupported"
)

// ParseTaskCategory maps raw router output onto the closed category set.
// Anything outside the vocabulary, including malformed model output, falls
// back to TaskUnsupported. This is a safe default, never an error.
func ParseTaskCategory(raw string) TaskCategory {
	switch TaskCategory(raw) {
	case TaskSimpleSearch, TaskBalanceCalculation, TaskGeneralSummary:
		return TaskCategory(raw)
	default:
		return TaskUnsupported
	}
}

// NeedsAggregation reports whether the category flows through the balance
// path. Balance calculation and general summary are treated identically.
func (t TaskCategory) NeedsAggregation() bool {
	return t == TaskBalanceCalculation || t == TaskGeneralSummary
}

// NoFilter is the sentinel the filter synthesizer returns when the question
// cannot be mapped to a retrieval filter.
const NoFilter = "NO_FILTER"

// AgentState is the transient execution context of one question. It is
// created when the question arrives, mutated by each stage it passes
// through, and discarded once the answer is returned.
type AgentState struct {
	Question     string
	Task         TaskCategory
	Filter       string
	Results      []InvoiceRecord
	IncomeTotal  float64
	ExpenseTotal float64
	FinalAnswer  string
}

func NewAgentState(question string) *AgentState {
	return &AgentState{Question: question}
}

// Answer is the user-facing result of one answered question.
type Answer struct {
	Text           string       `json:"answer"`
	Task           TaskCategory `json:"task_category"`
	RetrievedCount int          `json:"documents_retrieved"`
}

// ConversationMessage is one stored turn of a question/answer exchange.
type ConversationMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
