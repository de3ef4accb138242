package report

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"loanadmin/internal/overdue"
)

const (
	sheetName    = "Overdue Loans"
	pageSize     = 100
	prefetchRows = 10
)

var headers = []string{
	"Loan Code", "Customer", "Mobile", "Overdue Since",
	"Overdue EMIs", "EMI Amount", "Late Charges", "Total Due",
}

// Exporter renders the per-loan overdue rollup as a spreadsheet. Rows are
// written as they become available: the exporter walks a session the way a
// scrolling consumer would, asking for the next page only when the write
// cursor closes in on the loaded rows.
type Exporter struct {
	fetcher overdue.PageFetcher
	log     *zap.Logger
}

func NewExporter(fetcher overdue.PageFetcher, log *zap.Logger) *Exporter {
	return &Exporter{fetcher: fetcher, log: log}
}

func (e *Exporter) Export(ctx context.Context, search string, customerID uint64) (*excelize.File, error) {
	session := overdue.NewSession(e.fetcher, pageSize, e.log)
	session.Reset(search, customerID)

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", sheetName)

	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, err
		}
	}

	written := 0
	totalDue := decimal.Zero

	for session.HasMore() || written < session.Aggregator().Loans() {
		if session.ShouldFetchNextPage(written, prefetchRows) {
			if err := session.FetchNext(ctx); err != nil {
				return nil, err
			}
		}

		summaries := session.Aggregator().Summaries()
		for ; written < len(summaries); written++ {
			s := summaries[written]
			row := written + 2
			values := []any{
				s.LoanCode,
				s.CustomerName,
				s.CustomerMobile,
				s.OverdueSince.Format("2006-01-02"),
				s.Count,
				s.TotalEmiAmount.StringFixed(2),
				s.TotalLateCharges.StringFixed(2),
				s.TotalDue.StringFixed(2),
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				if err := f.SetCellValue(sheetName, cell, v); err != nil {
					return nil, err
				}
			}
			totalDue = totalDue.Add(s.TotalDue)
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	footer := written + 2
	if err := f.SetCellValue(sheetName, fmt.Sprintf("A%d", footer), "TOTAL"); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(sheetName, fmt.Sprintf("H%d", footer), totalDue.StringFixed(2)); err != nil {
		return nil, err
	}

	e.log.Info("Collection report built",
		zap.Int("loans", written),
		zap.String("total_due", totalDue.StringFixed(2)),
	)

	return f, nil
}
