package importer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"

	"fxledger/internal/core"
	"fxledger/internal/ledger"
	"fxledger/internal/log"
)

// BulkRecorder is the ledger write path Import feeds.
type BulkRecorder interface {
	BulkRecord(ctx context.Context, owner string, rows []ledger.RawRow) (ledger.BulkResult, error)
}

// Report is the outcome of one import. Failed is ordered by line.
type Report struct {
	Written int       `json:"written"`
	IDs     []string  `json:"ids"`
	Failed  []Failure `json:"failed"`
}

// Import decodes r and bulk-records every row that parsed. Parse failures
// and write failures are merged by source line.
func Import(ctx context.Context, svc BulkRecorder, owner string, r io.Reader) (Report, error) {
	decoded, err := Decode(r)
	if err != nil {
		return Report{}, err
	}

	res, err := svc.BulkRecord(ctx, owner, decoded.Rows)
	if err != nil {
		return Report{}, err
	}

	failed := append(make([]Failure, 0, len(decoded.Failures)+len(res.Failed)), decoded.Failures...)
	for _, f := range res.Failed {
		line := decoded.Lines[f.Index]
		cause := f.Reason
		var rowErr *core.ImportRowError
		if errors.As(f.Reason, &rowErr) {
			cause = rowErr.Err
		}
		failed = append(failed, Failure{Line: line, Err: &core.ImportRowError{Line: line, Err: cause}})
	}
	sort.SliceStable(failed, func(i, j int) bool { return failed[i].Line < failed[j].Line })

	for _, f := range failed {
		slog.DebugContext(ctx, "Import row skipped",
			log.FieldComponent, log.ComponentImporter,
			log.FieldOwner, owner,
			log.FieldLine, f.Line,
			log.FieldError, f.Err)
	}
	slog.InfoContext(ctx, "Import finished",
		log.FieldComponent, log.ComponentImporter,
		log.FieldOperation, log.OpImport,
		log.FieldOwner, owner,
		log.FieldWritten, res.Written,
		log.FieldFailed, len(failed))

	return Report{Written: res.Written, IDs: res.IDs, Failed: failed}, nil
}
