// Package sheets mirrors recorded transactions into a Google Sheets
// spreadsheet, one yearly tab per calendar year.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fxledger/internal/core"
	"fxledger/internal/log"
)

const defaultSheetName = "Transactions"

// Config selects the spreadsheet and the service account used to write it.
// CredentialsJSON wins over CredentialsFile.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Mirror struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewMirror wraps an existing Sheets service.
func NewMirror(svc *gsheet.Service, spreadsheetID, sheetName string) (*Mirror, error) {
	if svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = defaultSheetName
	}
	return &Mirror{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// New builds a Mirror authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Mirror, error) {
	credentials, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		option.WithCredentialsJSON(credentials),
		option.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created",
		log.FieldComponent, log.ComponentSheets,
		"spreadsheet_id", cfg.SpreadsheetID)
	return NewMirror(svc, cfg.SpreadsheetID, cfg.SheetName)
}

func loadCredentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// Header is the column order of every mirrored tab.
var Header = []any{"id", "owner", "date", "kind", "category", "original_amount", "original_currency", "base_amount"}

// Row renders a transaction in Header order. Amounts are plain decimal
// strings so the sheet parses them as numbers.
func Row(tx core.Transaction) []any {
	return []any{
		tx.ID,
		tx.OwnerKey,
		tx.OccurredOn.String(),
		string(tx.Kind),
		tx.Category,
		tx.OriginalAmount.String(),
		tx.OriginalCurrency,
		tx.BaseAmount.String(),
	}
}

// Append adds tx to the tab of the year it occurred in and returns the
// updated A1 range.
func (m *Mirror) Append(ctx context.Context, tx core.Transaction) (string, error) {
	tab := yearPrefixedName(m.sheetName, tx.OccurredOn.Year())
	rng := fmt.Sprintf("'%s'!A:H", tab)
	vr := &gsheet.ValueRange{Values: [][]any{Row(tx)}}

	resp, err := m.svc.Spreadsheets.Values.Append(m.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", tab, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	slog.DebugContext(ctx, "Mirrored transaction",
		log.FieldComponent, log.ComponentSheets,
		log.FieldOperation, log.OpAppend,
		log.FieldTxID, tx.ID,
		"range", ref)
	return ref, nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
