package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/opendoors/invoice-agent/internal/core/domain"
	"github.com/opendoors/invoice-agent/internal/core/ports"
)

// Aggregator retrieves every record of one invoice type and sums its totals.
type Aggregator struct {
	index ports.InvoiceIndex
	log   *slog.Logger
}

func NewAggregator(index ports.InvoiceIndex, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{index: index, log: log}
}

func (a *Aggregator) TotalForType(ctx context.Context, invoiceType domain.InvoiceType) (float64, error) {
	filter := fmt.Sprintf("InvoiceType eq '%s'", invoiceType)
	records, err := a.index.Query(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("query %s records: %w", invoiceType, err)
	}

	total := sumTotals(records)
	a.log.Info("aggregated_total",
		"invoice_type", string(invoiceType),
		"records", len(records),
		"total", total,
	)
	return total, nil
}

// sumTotals parses each record's serialized content and accumulates the
// invoice totals. A record with unparsable content contributes 0 and is
// skipped; one bad record must not abort the whole sum.
func sumTotals(records []domain.InvoiceRecord) float64 {
	var total float64
	for _, record := range records {
		var fields domain.InvoiceFields
		if err := json.Unmarshal([]byte(record.Content), &fields); err != nil {
			continue
		}
		total += fields.InvoiceTotal
	}
	return total
}
