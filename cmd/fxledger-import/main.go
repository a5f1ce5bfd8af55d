package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"fxledger/internal/amqp"
	"fxledger/internal/backend"
	"fxledger/internal/cli"
	"fxledger/internal/config"
	"fxledger/internal/importer"
	"fxledger/internal/ledger"
	"fxledger/internal/log"
)

func main() {
	owner := flag.String("owner", "", "owner key the rows belong to")
	file := flag.String("file", "", "CSV file to import, - for stdin")
	export := flag.String("export", "", "write the owner's transactions as CSV to this path instead of importing, - for stdout")
	flag.Parse()

	if *owner == "" || (*export == "") == (*file == "") {
		fmt.Fprintln(os.Stderr, "usage: fxledger-import -owner KEY (-file PATH | -export PATH)")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, "fxledger-import")

	if backend.BackendType(cfg.DataBackend) == backend.MemoryBackend && cfg.LedgerFile == "" {
		logger.Warn("Memory backend without LEDGER_FILE, rows will not outlive this run")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *owner, *file, *export); err != nil {
		logger.Error("Import failed", log.FieldError, err, log.FieldOwner, *owner)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, owner, file, export string) (err error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	store, err := backend.NewFactory(nil).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if cerr := store.Cleanup(); cerr != nil && err == nil {
			err = fmt.Errorf("close storage: %w", cerr)
		}
	}()

	rateStack, err := backend.NewRates(cfg)
	if err != nil {
		return err
	}

	opts := []ledger.Option{ledger.WithConcurrency(cfg.ImportConcurrency)}
	if cfg.AMQPURL != "" && export == "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return fmt.Errorf("connect amqp: %w", err)
		}
		defer client.Close()
		opts = append(opts, ledger.WithPublisher(client))
	}

	svc, err := ledger.NewService(store.Store, rateStack.Provider, cfg.BaseCurrency, opts...)
	if err != nil {
		return err
	}

	if export != "" {
		return exportRows(ctx, svc, owner, export)
	}

	var in io.Reader = os.Stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	report, err := importer.Import(ctx, svc, owner, in)
	if err != nil {
		return err
	}

	fmt.Printf("written: %d\n", report.Written)
	for _, f := range report.Failed {
		fmt.Printf("line %d: %s\n", f.Line, f.Reason())
	}
	if len(report.Failed) > 0 {
		fmt.Printf("failed: %d\n", len(report.Failed))
	}
	return nil
}

func exportRows(ctx context.Context, svc *ledger.Service, owner, path string) (err error) {
	rows, err := svc.ListByOwner(ctx, owner, ledger.SortByDate())
	if err != nil {
		return err
	}
	if path == "-" {
		return importer.Export(os.Stdout, rows)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := importer.Export(f, rows); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "exported %d rows to %s\n", len(rows), path)
	return nil
}
