package pipeline

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/dvloznov/expense-ingest/internal/domain"
)

// Required statement columns, in the order they are checked.
const (
	ColumnDate        = "Date"
	ColumnDescription = "Description"
	ColumnAmount      = "Amount"
	ColumnAccount     = "Account"
)

var requiredColumns = []string{ColumnDate, ColumnDescription, ColumnAmount, ColumnAccount}

const utf8BOM = "\ufeff"

// RowKind discriminates the values yielded by TransactionReader.
type RowKind int

const (
	// RowHeader is yielded once, after the header passed the column check.
	RowHeader RowKind = iota + 1
	// RowRecord is yielded for every parsed data row.
	RowRecord
)

func (k RowKind) String() string {
	switch k {
	case RowHeader:
		return "header"
	case RowRecord:
		return "record"
	default:
		return "unknown"
	}
}

// Row is one step of a transaction CSV parse.
type Row struct {
	Kind RowKind
	Line int
	// Header holds the raw column names when Kind is RowHeader.
	Header []string
	// Record is set when Kind is RowRecord.
	Record domain.TransactionRecord
}

// columnIndex maps each required column to its position in the header.
type columnIndex map[string]int

// TransactionReader pulls transactions from CSV input one row at a time.
// The first error ends the sequence; Err reports it.
//
//	tr := NewTransactionReader(r)
//	for tr.Next() {
//		row := tr.Row()
//		...
//	}
//	if err := tr.Err(); err != nil { ... }
type TransactionReader struct {
	csv     *csv.Reader
	columns columnIndex
	row     Row
	err     error
	done    bool
}

// NewTransactionReader wraps r. Rows may have any number of fields; missing
// trailing fields read as empty.
func NewTransactionReader(r io.Reader) *TransactionReader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	return &TransactionReader{csv: cr}
}

// Next advances to the next row. It returns false at end of input or after
// the first error.
func (tr *TransactionReader) Next() bool {
	if tr.done {
		return false
	}

	fields, err := tr.csv.Read()
	if errors.Is(err, io.EOF) {
		if tr.columns == nil {
			return tr.fail(&FormatError{Msg: msgMissingHeader})
		}
		tr.done = true
		return false
	}
	if err != nil {
		line := 0
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			line = pe.Line
		}
		return tr.fail(streamError(err, line))
	}
	line, _ := tr.csv.FieldPos(0)

	if tr.columns == nil {
		columns, ferr := mapHeader(fields, line)
		if ferr != nil {
			return tr.fail(ferr)
		}
		tr.columns = columns
		tr.row = Row{Kind: RowHeader, Line: line, Header: fields}
		return true
	}

	rec, ferr := tr.parseRecord(fields, line)
	if ferr != nil {
		return tr.fail(ferr)
	}
	tr.row = Row{Kind: RowRecord, Line: line, Record: rec}
	return true
}

// Row returns the row produced by the last successful call to Next.
func (tr *TransactionReader) Row() Row {
	return tr.row
}

// Err returns the error that ended the sequence, if any.
func (tr *TransactionReader) Err() error {
	return tr.err
}

func (tr *TransactionReader) fail(err *FormatError) bool {
	tr.err = err
	tr.row = Row{}
	tr.done = true
	return false
}

// mapHeader locates the required columns. Matching is exact apart from case;
// the first missing column in declared order is reported.
func mapHeader(header []string, line int) (columnIndex, *FormatError) {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	columns := make(columnIndex, len(requiredColumns))
	for _, name := range requiredColumns {
		pos := -1
		for i, h := range header {
			if strings.EqualFold(h, name) {
				pos = i
				break
			}
		}
		if pos < 0 {
			return nil, missingColumnError(name, line)
		}
		columns[name] = pos
	}
	return columns, nil
}

func (tr *TransactionReader) parseRecord(fields []string, line int) (domain.TransactionRecord, *FormatError) {
	field := func(name string) string {
		if pos := tr.columns[name]; pos < len(fields) {
			return fields[pos]
		}
		return ""
	}

	// Presence is judged on the trimmed text, before sanitizing. Dates are
	// kept as uploaded; ParseDate is applied downstream where a calendar
	// date is needed.
	date := strings.TrimSpace(field(ColumnDate))
	description := strings.TrimSpace(field(ColumnDescription))
	if date == "" || description == "" {
		return domain.TransactionRecord{}, &FormatError{Msg: msgMissingFields, Line: line}
	}

	return domain.TransactionRecord{
		Date:        date,
		Description: SanitizeDescription(description),
		Amount:      ParseAmount(field(ColumnAmount)),
		Account:     field(ColumnAccount),
		Category:    domain.DefaultCategory,
	}, nil
}

// ParseTransactions reads a whole statement. Either every data row is
// returned in input order or a *FormatError is, never a partial result.
func ParseTransactions(r io.Reader) ([]domain.TransactionRecord, error) {
	tr := NewTransactionReader(r)
	records := []domain.TransactionRecord{}
	for tr.Next() {
		if row := tr.Row(); row.Kind == RowRecord {
			records = append(records, row.Record)
		}
	}
	if err := tr.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// ParseTransactionsString is ParseTransactions over an in-memory buffer.
func ParseTransactionsString(s string) ([]domain.TransactionRecord, error) {
	return ParseTransactions(strings.NewReader(s))
}
