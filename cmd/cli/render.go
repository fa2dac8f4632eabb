package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/dvloznov/expense-ingest/internal/domain"
	infraBQ "github.com/dvloznov/expense-ingest/internal/infra/bigquery"
	"github.com/dvloznov/expense-ingest/internal/pipeline"
)

const timeLayout = "2006-01-02 15:04:05"

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	t.SetAutoFormatHeaders(false)
	return t
}

func renderTransactions(w io.Writer, records []domain.TransactionRecord) {
	t := newTable(w, "#", "Date", "Description", "Amount", "Account")
	t.SetColumnAlignment([]int{
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT,
	})
	for i, r := range records {
		t.Append([]string{strconv.Itoa(i + 1), r.Date, r.Description, r.Amount.StringFixed(2), r.Account})
	}
	t.Render()
}

func renderReport(w io.Writer, r *pipeline.BatchReport) {
	fmt.Fprintf(w, "Processed %d source(s): %d inserted, %d duplicate(s), %d failed\n",
		r.Processed, r.Inserted, r.Duplicates, len(r.Failures))

	if len(r.Failures) > 0 {
		t := newTable(w, "Source", "Error")
		for _, f := range r.Failures {
			t.Append([]string{f.SourceID, f.Error})
		}
		t.Render()
	}

	if len(r.Symbols) > 0 {
		renderSymbols(w, r.Symbols)
	}
}

func renderSymbols(w io.Writer, symbols []domain.SymbolSummary) {
	t := newTable(w, "Symbol", "Data points", "Latest date")
	for _, s := range symbols {
		t.Append([]string{s.Symbol, strconv.FormatInt(s.DataPoints, 10), s.LatestDate.String()})
	}
	t.Render()
}

func renderPrices(w io.Writer, points []domain.MarketDataPoint) {
	t := newTable(w, "Symbol", "Date", "Open", "High", "Low", "Close", "Volume")
	for _, p := range points {
		t.Append([]string{
			p.Symbol,
			p.Date.String(),
			p.OpenPrice.StringFixed(2),
			p.HighPrice.StringFixed(2),
			p.LowPrice.StringFixed(2),
			p.ClosePrice.StringFixed(2),
			strconv.FormatInt(p.Volume, 10),
		})
	}
	t.Render()
}

func renderIndicators(w io.Writer, points []domain.IndicatorPoint) {
	t := newTable(w, "Indicator", "Date", "Value", "Unit")
	for _, p := range points {
		t.Append([]string{p.IndicatorName, p.Date.String(), p.Value.String(), p.Unit})
	}
	t.Render()
}

func renderRuns(w io.Writer, runs []*infraBQ.IngestionRunRow) {
	t := newTable(w, "Run", "Kind", "Source", "Started", "Status", "Inserted", "Duplicates", "Error")
	for _, r := range runs {
		t.Append([]string{
			r.RunID,
			r.Kind,
			r.SourceID,
			r.StartedTS.UTC().Format(timeLayout),
			r.Status,
			nullInt(r.Inserted.Int64, r.Inserted.Valid),
			nullInt(r.Duplicates.Int64, r.Duplicates.Valid),
			truncate(r.ErrorMessage, 60),
		})
	}
	t.Render()
}

func nullInt(v int64, valid bool) string {
	if !valid {
		return "-"
	}
	return strconv.FormatInt(v, 10)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func joinList(items []string) string {
	return strings.Join(items, ",")
}
