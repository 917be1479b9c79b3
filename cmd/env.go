package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bidintake/internal/intake"
	"github.com/sells-group/bidintake/internal/ocr"
	"github.com/sells-group/bidintake/internal/parse"
	"github.com/sells-group/bidintake/internal/store"
)

// intakeEnv holds the initialized store and service shared by the
// launch/status/runs/batch/serve commands.
type intakeEnv struct {
	Store   store.Store
	Service *intake.Service
}

// Close releases resources held by the environment.
func (e *intakeEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "bidintake.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initIntake sets up the store, the PDF extraction stack, and the intake
// service. Callers should defer env.Close().
func initIntake(ctx context.Context) (*intakeEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	extractor, err := ocr.NewExtractor(cfg.OCR)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	parser := parse.New(extractor, ocr.NewPageCounter(cfg.OCR.PdfInfoPath))

	return &intakeEnv{
		Store:   st,
		Service: intake.New(cfg, st, parser),
	}, nil
}
