package domain

// AnalyzerProfile binds one external analysis model to the document type it is
// expected to detect and the invoice classification that acceptance implies.
// Profiles are tried in a fixed priority order and are mutually exclusive:
// an invoice is either issued (income) or received (expense), never both.
type AnalyzerProfile struct {
	ModelID         string
	ExpectedDocType string
	InvoiceType     InvoiceType
}

// AnalysisCandidate is the result of one analysis attempt against one profile.
// Confidence is in [0,1]. Fields holds the raw extracted field contents before
// normalization.
type AnalysisCandidate struct {
	DocType    string
	Confidence float64
	Fields     map[string]string
}

// Field returns the raw content of a named extracted field, or "" when the
// analyzer did not produce it.
func (c *AnalysisCandidate) Field(name string) string {
	if c == nil {
		return ""
	}
	return c.Fields[name]
}
