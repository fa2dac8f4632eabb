package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/expense-ingest/internal/domain"
)

func requireFormatError(t *testing.T, err error) *FormatError {
	t.Helper()
	var fe *FormatError
	require.True(t, errors.As(err, &fe), "expected *FormatError, got %T: %v", err, err)
	return fe
}

func TestParseTransactions_ValidInput(t *testing.T) {
	input := "Date,Description,Amount,Account\n2024-01-15,\"COFFEE SHOP\",\"-5.50\",\"Checking\"\n2024-01-16,\"SALARY\",\"3000.00\",\"Checking\""

	records, err := ParseTransactionsString(input)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "2024-01-15", records[0].Date)
	assert.Equal(t, "COFFEE SHOP", records[0].Description)
	assert.True(t, records[0].Amount.Equal(decimal.RequireFromString("-5.5")), "amount = %s", records[0].Amount)
	assert.Equal(t, "Checking", records[0].Account)
	assert.Equal(t, domain.DefaultCategory, records[0].Category)

	assert.Equal(t, "2024-01-16", records[1].Date)
	assert.Equal(t, "SALARY", records[1].Description)
	assert.True(t, records[1].Amount.Equal(decimal.NewFromInt(3000)), "amount = %s", records[1].Amount)
	assert.Equal(t, "Checking", records[1].Account)
	assert.Equal(t, "uncategorized", records[1].Category)
}

func TestParseTransactions_PreservesOrder(t *testing.T) {
	input := "Date,Description,Amount,Account\n" +
		"2024-03-01,C,1,A\n" +
		"2024-01-01,A,2,A\n" +
		"2024-02-01,B,3,A\n"

	records, err := ParseTransactionsString(input)
	require.NoError(t, err)
	require.Len(t, records, 3)

	var got []string
	for _, r := range records {
		got = append(got, r.Description)
	}
	assert.Equal(t, []string{"C", "A", "B"}, got)
}

func TestParseTransactions_MissingColumn(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"missing amount", "Date,Description,Account", `Required column "Amount" not found`},
		{"nothing matches", "Foo,Bar", `Required column "Date" not found`},
		{"first in declared order", "Account,Amount", `Required column "Date" not found`},
		{"missing description", "Date,Amount,Account", `Required column "Description" not found`},
		{"missing account", "date,description,amount", `Required column "Account" not found`},
		{"no fuzzy match", "Dates,Description,Amount,Account", `Required column "Date" not found`},
		{"surrounding space is not ignored", " Date,Description,Amount,Account", `Required column "Date" not found`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ParseTransactionsString(tt.header + "\n2024-01-15,X,1,Checking\n")
			require.Error(t, err)
			assert.Nil(t, records)
			fe := requireFormatError(t, err)
			assert.Equal(t, tt.want, fe.Error())
			assert.Equal(t, 1, fe.Line)
		})
	}
}

func TestParseTransactions_CaseInsensitiveHeader(t *testing.T) {
	input := "AMOUNT,date,Notes,DeScRiPtIoN,account\n-1.25,2024-01-15,ignored,Bakery,Savings\n"

	records, err := ParseTransactionsString(input)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Bakery", records[0].Description)
	assert.Equal(t, "Savings", records[0].Account)
	assert.True(t, records[0].Amount.Equal(decimal.RequireFromString("-1.25")))
}

func TestParseTransactions_ByteOrderMark(t *testing.T) {
	records, err := ParseTransactionsString("\ufeffDate,Description,Amount,Account\n2024-01-15,Tea,2,Cash\n")
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestParseTransactions_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "\n\n"} {
		records, err := ParseTransactionsString(input)
		require.Error(t, err)
		assert.Nil(t, records)
		assert.Equal(t, "Invalid CSV format: missing required columns", requireFormatError(t, err).Error())
	}
}

func TestParseTransactions_HeaderOnly(t *testing.T) {
	records, err := ParseTransactionsString("Date,Description,Amount,Account\n")
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestParseTransactions_BadRowAbortsBatch(t *testing.T) {
	tests := []struct {
		name string
		row  string
		want string
	}{
		{"empty date", ",Coffee,1,Checking", "Error parsing transaction: Invalid transaction data: missing required fields"},
		{"blank description", "2024-01-15,   ,1,Checking", "Error parsing transaction: Invalid transaction data: missing required fields"},
		{"short row", "2024-01-15", "Error parsing transaction: Invalid transaction data: missing required fields"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "Date,Description,Amount,Account\n2024-01-14,Good row,1,Checking\n" + tt.row + "\n2024-01-16,Later row,1,Checking\n"

			records, err := ParseTransactionsString(input)
			require.Error(t, err)
			assert.Nil(t, records)
			fe := requireFormatError(t, err)
			assert.Equal(t, tt.want, fe.Error())
			assert.Equal(t, 3, fe.Line)
		})
	}
}

func TestParseTransactions_AmountCoercion(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"-5.50", "-5.5"},
		{"3000.00", "3000"},
		{"not a number", "0"},
		{"", "0"},
		{"12.5 GBP", "12.5"},
		{"$12.50", "0"},
		{"1e3", "1000"},
		{".75", "0.75"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			input := "Date,Description,Amount,Account\n2024-01-15,Item,\"" + tt.amount + "\",Checking\n"

			records, err := ParseTransactionsString(input)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.True(t, records[0].Amount.Equal(decimal.RequireFromString(tt.want)), "amount = %s, want %s", records[0].Amount, tt.want)
		})
	}
}

func TestParseTransactions_KeepsDatesAsUploaded(t *testing.T) {
	dates := []string{"2024-1-5", "01-15-2024", "2024.01.15", "Jan 15 2024", "2024-01-15 10:30:00", "yesterday"}

	var b strings.Builder
	b.WriteString("Date,Description,Amount,Account\n")
	for _, d := range dates {
		b.WriteString(d + ",Coffee,-1,Checking\n")
	}

	records, err := ParseTransactionsString(b.String())
	require.NoError(t, err)
	require.Len(t, records, len(dates))
	for i, d := range dates {
		assert.Equal(t, d, records[i].Date)
	}
}

func TestParseTransactions_BracketOnlyDescription(t *testing.T) {
	records, err := ParseTransactionsString("Date,Description,Amount,Account\n2024-01-15,<>,1,Checking\n")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "", records[0].Description)
}

func TestParseTransactions_HugeExponentAmount(t *testing.T) {
	records, err := ParseTransactionsString("Date,Description,Amount,Account\n2024-01-15,X,1e200000000,Checking\n2024-01-16,Y,2.5e3,Checking\n")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].Amount.IsZero())
	assert.True(t, records[1].Amount.Equal(decimal.NewFromInt(2500)))

	data, err := json.Marshal(records)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"amount":0`)
	assert.Contains(t, string(data), `"amount":2500`)
}

func TestParseTransactions_MissingTrailingFields(t *testing.T) {
	records, err := ParseTransactionsString("Date,Description,Amount,Account\n2024-01-15,Coffee\n")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Amount.IsZero())
	assert.Equal(t, "", records[0].Account)
}

func TestParseTransactions_SanitizesDescription(t *testing.T) {
	records, err := ParseTransactionsString("Date,Description,Amount,Account\n2024-01-15,\"  <b>Coffee</b>  \",1,Checking\n")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "bCoffee/b", records[0].Description)
}

func TestParseTransactions_BrokenQuoting(t *testing.T) {
	input := "Date,Description,Amount,Account\n2024-01-15,COF\"FEE SHOP,-5.50,Checking\n"

	records, err := ParseTransactionsString(input)
	require.Error(t, err)
	assert.Nil(t, records)

	fe := requireFormatError(t, err)
	assert.Contains(t, fe.Error(), "CSV parsing error: ")

	var pe *csv.ParseError
	assert.True(t, errors.As(err, &pe))
}

func TestParseTransactions_StopsAtHeaderFailure(t *testing.T) {
	// The malformed row after the header is never read.
	input := "Date,Description\n2024-01-15,\"unterminated\n"

	_, err := ParseTransactionsString(input)
	require.Error(t, err)
	assert.Equal(t, `Required column "Amount" not found`, err.Error())
}

func TestTransactionReader_Rows(t *testing.T) {
	tr := NewTransactionReader(strings.NewReader("Date,Description,Amount,Account,Memo\n2024-01-15,Coffee,-2,Checking,x\n"))

	require.True(t, tr.Next())
	header := tr.Row()
	assert.Equal(t, RowHeader, header.Kind)
	assert.Equal(t, 1, header.Line)
	assert.Equal(t, []string{"Date", "Description", "Amount", "Account", "Memo"}, header.Header)

	require.True(t, tr.Next())
	row := tr.Row()
	assert.Equal(t, RowRecord, row.Kind)
	assert.Equal(t, 2, row.Line)
	assert.Equal(t, "Coffee", row.Record.Description)

	assert.False(t, tr.Next())
	assert.NoError(t, tr.Err())
	assert.False(t, tr.Next())
}

func TestTransactionReader_TerminalFailure(t *testing.T) {
	tr := NewTransactionReader(strings.NewReader("Date,Description,Amount,Account\n,Coffee,1,Checking\n2024-01-16,Tea,1,Cash\n"))

	require.True(t, tr.Next())
	assert.False(t, tr.Next())
	require.Error(t, tr.Err())
	assert.Equal(t, RowKind(0), tr.Row().Kind)

	// Once failed, the reader stays failed.
	assert.False(t, tr.Next())
	assert.Equal(t, msgMissingFields, tr.Err().Error())
}

func TestRowKind_String(t *testing.T) {
	assert.Equal(t, "header", RowHeader.String())
	assert.Equal(t, "record", RowRecord.String())
	assert.Equal(t, "unknown", RowKind(0).String())
}
