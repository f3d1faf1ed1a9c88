package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/receiptcheck/internal/attachments"
	"github.com/roach88/receiptcheck/internal/blob"
	"github.com/roach88/receiptcheck/internal/config"
	"github.com/roach88/receiptcheck/internal/datastore"
	"github.com/roach88/receiptcheck/internal/harness"
	"github.com/roach88/receiptcheck/internal/helpdesk"
	"github.com/roach88/receiptcheck/internal/payload"
	"github.com/roach88/receiptcheck/internal/steps"
	"github.com/roach88/receiptcheck/internal/store"
	"github.com/roach88/receiptcheck/internal/tokenizer"
)

// Env holds the backends a command runs against. Close releases them.
type Env struct {
	Config    *config.Config
	Datastore *datastore.Gateway
	Blobs     *datastore.Blobs

	logger    *slog.Logger
	sqlite    *store.SQLite
	mongo     *store.Mongo
	bizDB     store.Database
	receiptDB store.Database
	closers   []func() error
}

// Wire opens the datastore and blob backends named by cfg. A nil logger
// discards.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Env, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	env := &Env{Config: cfg, logger: logger}
	if err := env.openDatastore(ctx); err != nil {
		env.Close()
		return nil, err
	}
	if err := env.openBlobs(ctx); err != nil {
		env.Close()
		return nil, err
	}

	// An unset secret and salt are valid: the service then derives its key
	// from empty strings too.
	cipher, err := payload.New(cfg.AESSecretKey, cfg.AESSalt)
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("failed to configure payload cipher: %w", err)
	}
	env.Datastore = datastore.New(env.bizDB, env.receiptDB, cfg.Containers, cipher)

	logger.Debug("environment wired", "config", cfg)
	return env, nil
}

func (e *Env) openDatastore(ctx context.Context) error {
	var client store.Client
	switch e.Config.DatastoreDriver {
	case config.DriverMongo:
		m, err := store.ConnectMongo(ctx, e.Config.DatastoreURI)
		if err != nil {
			return fmt.Errorf("failed to open datastore: %w", err)
		}
		e.mongo, client = m, m
	default:
		s, err := store.OpenSQLite(e.Config.DatastoreURI)
		if err != nil {
			return fmt.Errorf("failed to open datastore: %w", err)
		}
		e.sqlite, client = s, s
	}
	e.closers = append(e.closers, client.Close)
	e.bizDB = client.Database(e.Config.BizEventDB)
	e.receiptDB = client.Database(e.Config.ReceiptDB)
	return nil
}

func (e *Env) openBlobs(ctx context.Context) error {
	cfg := e.Config
	if cfg.BlobConnString == "" {
		return fmt.Errorf("%s is required for %s blob storage", config.BlobConnString, cfg.BlobDriver)
	}

	var (
		s   blob.Store
		err error
	)
	switch cfg.BlobDriver {
	case config.DriverMongo:
		m := e.mongo
		if m == nil || cfg.BlobConnString != cfg.DatastoreURI {
			m, err = store.ConnectMongo(ctx, cfg.BlobConnString)
			if err != nil {
				return fmt.Errorf("failed to open blob storage: %w", err)
			}
			e.closers = append(e.closers, m.Close)
		}
		s, err = blob.NewGridFS(m.Client().Database(cfg.ReceiptDB), cfg.BlobContainer)
	default:
		if e.sqlite != nil && cfg.BlobConnString == cfg.DatastoreURI {
			s, err = blob.NewSQLite(e.sqlite.DB(), cfg.BlobContainer)
		} else {
			s, err = blob.OpenSQLite(cfg.BlobConnString, cfg.BlobContainer)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to open blob storage: %w", err)
	}
	e.closers = append(e.closers, s.Close)
	e.Blobs = datastore.NewBlobs(s)
	return nil
}

// Close releases the backends in reverse order of opening.
func (e *Env) Close() error {
	var errs []error
	for _, c := range slices.Backward(e.closers) {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

// Lookup resolves a container by name for absent assertions. The biz event
// container lives in its own database; every other container is a receipt
// container.
func (e *Env) Lookup(name string) store.Container {
	if name == e.Config.Containers.BizEvents {
		return e.bizDB.Container(name)
	}
	return e.receiptDB.Container(name)
}

// Helpdesk returns a client for the helpdesk API.
func (e *Env) Helpdesk() (*helpdesk.Client, error) {
	if err := e.Config.Require(config.HelpdeskURL); err != nil {
		return nil, err
	}
	endpoints, err := helpdesk.LoadEndpoints(e.Config.Endpoints)
	if err != nil {
		return nil, fmt.Errorf("failed to load helpdesk endpoints: %w", err)
	}
	return helpdesk.New(e.Config.HelpdeskURL, endpoints,
		helpdesk.WithSubscriptionKey(e.Config.HelpdeskSubKey),
		helpdesk.WithCanary(e.Config.Canary),
		helpdesk.WithLogger(e.logger),
	)
}

// Attachments returns a client for the attachments API.
func (e *Env) Attachments() (*attachments.Client, error) {
	if err := e.Config.Require(config.ServiceURI); err != nil {
		return nil, err
	}
	return attachments.New(e.Config.ServiceURI, e.Config.Paths,
		helpdesk.WithSubscriptionKey(e.Config.SubKey),
		helpdesk.WithCanary(e.Config.Canary),
		helpdesk.WithLogger(e.logger),
	)
}

// Tokenizer returns a client for the PDV tokenizer.
func (e *Env) Tokenizer() (*tokenizer.Client, error) {
	if err := e.Config.Require(config.TokenizerURL, config.TokenizerAPIKey); err != nil {
		return nil, err
	}
	return tokenizer.New(e.Config.TokenizerURL, e.Config.TokenizerAPIKey,
		helpdesk.WithLogger(e.logger),
	)
}

// StepDeps wires the step library to this environment.
func (e *Env) StepDeps(hd *helpdesk.Client, workDir string) steps.Deps {
	return steps.Deps{
		Datastore: e.Datastore,
		Blobs:     e.Blobs,
		Helpdesk:  hd,
		Logger:    e.logger,
		WorkDir:   workDir,
	}
}

// HarnessDeps wires the scenario harness to this environment.
func (e *Env) HarnessDeps(hd *helpdesk.Client, workDir string) harness.Deps {
	return harness.Deps{
		Steps:   e.StepDeps(hd, workDir),
		Lookup:  e.Lookup,
		Logger:  e.logger,
		Timeout: e.Config.ScenarioTimeout,
	}
}
