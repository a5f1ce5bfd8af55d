// Package importer reads ledger rows from CSV and writes them back out.
//
// Two input shapes are recognized from the header, in any column order:
//
//	date,amount,category,type
//	date,base_amount,original_amount,original_currency,category,type
//
// "kind" is accepted in place of "type". Unknown extra columns are ignored.
package importer

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"fxledger/internal/core"
	"fxledger/internal/ledger"
)

var ErrUnrecognizedHeader = errors.New("header matches neither import format")

type shape int

const (
	shapeLegacy shape = iota + 1
	shapeNormalized
)

// Failure is a row that was not written. Err is a *core.ImportRowError
// carrying Line.
type Failure struct {
	Line int   `json:"line"`
	Err  error `json:"-"`
}

func (f Failure) Reason() string { return f.Err.Error() }

func (f Failure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Line   int    `json:"line"`
		Reason string `json:"reason"`
	}{f.Line, f.Reason()})
}

// Decoded holds the rows that parsed, the source line of each, and the rows
// that did not.
type Decoded struct {
	Rows     []ledger.RawRow
	Lines    []int
	Failures []Failure
}

type columns map[string]int

func (c columns) has(names ...string) bool {
	for _, n := range names {
		if _, ok := c[n]; !ok {
			return false
		}
	}
	return true
}

func (c columns) get(record []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func readHeader(header []string) (columns, shape, error) {
	cols := make(columns, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if name == "type" {
			name = "kind"
		}
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}

	switch {
	case cols.has("date", "base_amount", "original_amount", "original_currency", "category", "kind"):
		return cols, shapeNormalized, nil
	case cols.has("date", "amount", "category", "kind"):
		return cols, shapeLegacy, nil
	default:
		return nil, 0, &core.ImportRowError{Line: 1, Err: fmt.Errorf("%w: %q", ErrUnrecognizedHeader, strings.Join(header, ","))}
	}
}

// Decode reads the header and every data row. Rows that cannot be parsed
// become failures; only an unreadable header fails the whole decode.
func Decode(r io.Reader) (Decoded, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Decoded{}, &core.ImportRowError{Line: 1, Err: ErrUnrecognizedHeader}
	}
	if err != nil {
		return Decoded{}, fmt.Errorf("read header: %w", err)
	}
	cols, kind, err := readHeader(header)
	if err != nil {
		return Decoded{}, err
	}

	out := Decoded{
		Rows:     make([]ledger.RawRow, 0),
		Lines:    make([]int, 0),
		Failures: make([]Failure, 0),
	}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				out.Failures = append(out.Failures, Failure{Line: pe.Line, Err: &core.ImportRowError{Line: pe.Line, Err: pe.Err}})
				continue
			}
			return out, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)

		row, err := parseRow(cols, kind, len(header), record)
		if err != nil {
			out.Failures = append(out.Failures, Failure{Line: line, Err: &core.ImportRowError{Line: line, Err: err}})
			continue
		}
		out.Rows = append(out.Rows, row)
		out.Lines = append(out.Lines, line)
	}
	return out, nil
}

func parseRow(cols columns, kind shape, width int, record []string) (ledger.RawRow, error) {
	if len(record) < width {
		return nil, fmt.Errorf("expected %d fields, got %d", width, len(record))
	}

	var date core.Date
	if s := cols.get(record, "date"); s != "" {
		d, err := core.ParseDate(s)
		if err != nil {
			return nil, err
		}
		date = d
	}

	switch kind {
	case shapeLegacy:
		amount, err := amountField("amount", cols.get(record, "amount"))
		if err != nil {
			return nil, err
		}
		return ledger.LegacyRow{
			Date:     date,
			Amount:   amount,
			Category: cols.get(record, "category"),
			Kind:     cols.get(record, "kind"),
		}, nil

	default:
		original, err := amountField("original_amount", cols.get(record, "original_amount"))
		if err != nil {
			return nil, err
		}
		var base decimal.NullDecimal
		if s := cols.get(record, "base_amount"); s != "" {
			v, err := amountField("base_amount", s)
			if err != nil {
				return nil, err
			}
			base = decimal.NewNullDecimal(v)
		}
		return ledger.NormalizedRow{
			Date:             date,
			BaseAmount:       base,
			OriginalAmount:   original,
			OriginalCurrency: cols.get(record, "original_currency"),
			Category:         cols.get(record, "category"),
			Kind:             cols.get(record, "kind"),
		}, nil
	}
}

// amountField parses an amount and reports failures under the column name.
func amountField(field, s string) (decimal.Decimal, error) {
	v, err := core.ParseAmount(s)
	var vErr *core.ValidationError
	if errors.As(err, &vErr) {
		return decimal.Zero, core.NewValidationError(field, vErr.Reason)
	}
	return v, err
}

var exportHeader = []string{"id", "date", "kind", "category", "original_amount", "original_currency", "base_amount"}

// Export writes rows in a layout Decode reads back as the normalized shape.
func Export(w io.Writer, rows []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, tx := range rows {
		if err := cw.Write([]string{
			tx.ID,
			tx.OccurredOn.String(),
			string(tx.Kind),
			tx.Category,
			tx.OriginalAmount.String(),
			tx.OriginalCurrency,
			tx.BaseAmount.String(),
		}); err != nil {
			return fmt.Errorf("write row %s: %w", tx.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
