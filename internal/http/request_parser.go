package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fxledger/internal/core"
)

// decodeJSON reads one JSON object from the body, rejecting unknown fields
// and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return core.NewValidationError("body", fmt.Sprintf("exceeds %d bytes", maxErr.Limit))
		}
		if errors.Is(err, io.EOF) {
			return core.NewValidationError("body", "must not be empty")
		}
		return core.NewValidationError("body", err.Error())
	}
	if dec.More() {
		return core.NewValidationError("body", "must contain a single JSON object")
	}
	return nil
}

// PeriodParams resolves year and month from the query, defaulting to the
// month containing now.
func PeriodParams(q url.Values, now time.Time) (core.Period, error) {
	year, month := now.Year(), int(now.Month())
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return core.Period{}, core.NewValidationError("year", fmt.Sprintf("must be an integer, got %q", v))
		}
		year = y
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return core.Period{}, core.NewValidationError("month", fmt.Sprintf("must be an integer, got %q", v))
		}
		month = m
	}
	return core.NewPeriod(month, year)
}

// optionalDate parses a YYYY-MM-DD query value; empty yields the zero Date.
func optionalDate(q url.Values, name string) (core.Date, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, core.NewValidationError(name, fmt.Sprintf("must be YYYY-MM-DD, got %q", v))
	}
	return d, nil
}

// optionalAmount parses a decimal query value, defaulting to def.
func optionalAmount(q url.Values, name string, def decimal.Decimal) (decimal.Decimal, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return def, nil
	}
	amount, err := core.ParseAmount(v)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return amount, nil
}
