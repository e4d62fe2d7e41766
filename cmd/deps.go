package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/site-quote/internal/config"
	"github.com/sells-group/site-quote/internal/engine"
	"github.com/sells-group/site-quote/internal/model"
	"github.com/sells-group/site-quote/internal/pricing"
	"github.com/sells-group/site-quote/internal/resilience"
	"github.com/sells-group/site-quote/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "site-quote.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil, resilience.DefaultPolicy())
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore opens and migrates the configured store.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// initPricingSource returns the configured pricing source. st is only used
// when pricing comes from the store and may be nil otherwise.
func initPricingSource(pc config.PricingConfig, st store.Store) (pricing.Source, error) {
	var src pricing.Source
	switch pc.Source {
	case config.PricingSourceBuiltin, "":
		return pricing.Fixed(pricing.DefaultTable()), nil
	case config.PricingSourceFile:
		src = pricing.File{Path: pc.File}
	case config.PricingSourceURL:
		src = pricing.NewRemote(pc.URL, time.Duration(pc.TimeoutSecs)*time.Second, time.Duration(pc.RefreshSecs)*time.Second)
	case config.PricingSourceStore:
		if st == nil {
			return nil, eris.New("pricing source store requires an open store")
		}
		src = st
	default:
		return nil, eris.Errorf("unsupported pricing source: %s", pc.Source)
	}
	return pricing.Retrying{
		Source: src,
		Policy: resilience.DefaultPolicy().WithAttempts(pc.Retries + 1),
	}, nil
}

// quoteEnv bundles what the quoting commands need. Close releases the store
// when one was opened.
type quoteEnv struct {
	Engine  *engine.Engine
	Pricing pricing.Source
	Store   store.Store
}

func (e *quoteEnv) Close() {
	if e.Store != nil {
		e.Store.Close() //nolint:errcheck
	}
}

// initQuoteEnv validates config for mode and wires the engine, pricing source
// and, when needed, the store.
func initQuoteEnv(ctx context.Context, mode string, needStore bool) (*quoteEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	env := &quoteEnv{Engine: newEngine(cfg.Engine)}
	if needStore || cfg.Pricing.Source == config.PricingSourceStore {
		st, err := openStore(ctx)
		if err != nil {
			return nil, err
		}
		env.Store = st
	}

	src, err := initPricingSource(cfg.Pricing, env.Store)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Pricing = src
	return env, nil
}

func newEngine(ec config.EngineConfig) *engine.Engine {
	return engine.New(engine.Options{
		RequireFullForm: ec.RequireFullForm,
		StrictNumbers:   ec.StrictNumbers,
	})
}

// readQuestionnaire loads a questionnaire from a JSON or YAML file, chosen by
// extension.
func readQuestionnaire(path string) (*model.Questionnaire, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read questionnaire %s", path)
	}

	var q model.Questionnaire
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &q)
	default:
		err = json.Unmarshal(data, &q)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "parse questionnaire %s", path)
	}
	return &q, nil
}
