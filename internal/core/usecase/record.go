package usecase

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opendoors/invoice-agent/internal/core/domain"
)

const textFieldFallback = "N/A"

// BuildInvoiceRecord normalizes the raw extracted fields of an accepted
// candidate into an index-ready record. Absent or unparsable fields fall
// back to sentinels instead of failing the record: a partially filled
// invoice is still useful for search and aggregation.
func BuildInvoiceRecord(
	candidate *domain.AnalysisCandidate,
	profile domain.AnalyzerProfile,
	partnerName, sourceFile string,
	fingerprint domain.Fingerprint,
) domain.InvoiceRecord {
	fields := domain.InvoiceFields{
		VendorName:   textFieldOrFallback(candidate.Field("VendorName")),
		InvoiceDate:  textFieldOrFallback(candidate.Field("InvoiceDate")),
		InvoiceTotal: domain.ParseCurrencyAmount(candidate.Field("InvoiceTotal")),
		TotalTax:     domain.ParseCurrencyAmount(candidate.Field("TotalTax")),
	}

	// The content payload is what aggregation re-parses later; marshalling a
	// plain struct of primitives cannot fail.
	content, _ := json.Marshal(fields)

	return domain.InvoiceRecord{
		ID:           "invoice_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Content:      string(content),
		VendorName:   fields.VendorName,
		InvoiceDate:  fields.InvoiceDate,
		InvoiceTotal: fields.InvoiceTotal,
		TotalTax:     fields.TotalTax,
		SourceFile:   sourceFile,
		DocumentType: "invoice",
		ProcessedAt:  time.Now().UTC(),
		InvoiceType:  profile.InvoiceType,
		PartnerName:  partnerName,
		FileHash:     fingerprint.String(),
	}
}

func textFieldOrFallback(value string) string {
	if strings.TrimSpace(value) == "" {
		return textFieldFallback
	}
	return value
}
