package commands

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ledgerworks/closeflow/pkg/closeops"
	"github.com/ledgerworks/closeflow/pkg/config"
	"github.com/ledgerworks/closeflow/pkg/engine"
	"github.com/ledgerworks/closeflow/pkg/policy"
	"github.com/ledgerworks/closeflow/pkg/stores"
	"github.com/ledgerworks/closeflow/pkg/telemetry"
)

// runtime holds everything a command needs: configuration, telemetry, the
// catalog, policies and a lazily opened store.
type runtime struct {
	cfg      *config.Config
	tel      *telemetry.Telemetry
	catalog  *engine.Catalog
	policies *policy.Engine

	// envelopeStore lets invocation envelopes name their own SQL API.
	// Only stdin invocations set it.
	envelopeStore bool

	mu     sync.Mutex
	store  engine.QueryExecutor
	sqlite *stores.SQLiteStore
	svc    *closeops.Service
}

// loadRuntime reads configuration and builds telemetry, catalog and policies.
func loadRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return nil, err
	}
	if catalogPath != "" {
		cfg.Catalog.Path = catalogPath
	}

	tel, err := telemetry.NewTelemetry(cfg.ToTelemetry(appVersion))
	if err != nil {
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}
	if cfg.Telemetry.EventsEnabled {
		tel.Events.Subscribe(telemetry.LogSubscriber(tel.Logger), nil)
	}

	r := &runtime{cfg: cfg, tel: tel, catalog: engine.DefaultCatalog()}

	if cfg.Catalog.Path != "" {
		catalog, err := config.NewCatalogParser().LoadCatalog(ctx, cfg.Catalog.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog %s: %w", cfg.Catalog.Path, err)
		}
		r.catalog = catalog
	}

	if cfg.Policy.Enabled {
		policies, err := policy.NewEngine(tel.Logger.NewComponentLogger("policy").Zerolog())
		if err != nil {
			return nil, fmt.Errorf("failed to start policy engine: %w", err)
		}
		if len(cfg.Policy.Paths) > 0 {
			if err := policies.LoadPolicies(ctx, cfg.Policy.Paths); err != nil {
				return nil, err
			}
		}
		r.policies = policies
	}

	return r, nil
}

// Close releases the store and flushes telemetry.
func (r *runtime) Close(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sqlite != nil {
		if err := r.sqlite.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close store")
		}
	}
	if err := r.tel.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to flush telemetry")
	}
}

// newService builds a service over store with the runtime's catalog, policies and telemetry.
func (r *runtime) newService(store engine.QueryExecutor) *closeops.Service {
	opts := []closeops.Option{
		closeops.WithCatalog(r.catalog),
		closeops.WithTelemetry(r.tel),
		closeops.WithEnvironment(r.cfg.Telemetry.Environment),
	}
	if r.policies != nil {
		opts = append(opts, closeops.WithPolicyEvaluator(r.policies))
	}
	return closeops.NewService(store, opts...)
}

// service returns the service over the configured store, opening it on first use.
func (r *runtime) service(ctx context.Context) (*closeops.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.svc != nil {
		return r.svc, nil
	}
	if err := r.openStore(ctx); err != nil {
		return nil, err
	}
	r.svc = r.newService(r.store)
	return r.svc, nil
}

// catalogService returns a service for the operations that never touch the store.
func (r *runtime) catalogService() *closeops.Service {
	return r.newService(nil)
}

func (r *runtime) openStore(ctx context.Context) error {
	logger := r.tel.Logger.NewComponentLogger("store")
	sc := r.cfg.Store

	switch sc.Driver {
	case config.StoreHTTP:
		client, err := stores.NewHTTPClient(httpConfig(sc.HTTP),
			stores.WithLogger(logger.WithStore(stores.DriverHTTP, sc.HTTP.WorkspaceID).Zerolog()),
			stores.WithObserver(r.tel.Metrics),
			stores.WithTracer(r.tel.Tracer))
		if err != nil {
			return engine.NewInternalError("failed to create SQL API client", err)
		}
		r.store = client

	default:
		store, err := stores.NewSQLiteStore(stores.Config{
			Path:            sc.SQLite.Path,
			MaxOpenConns:    sc.SQLite.MaxOpenConns,
			MaxIdleConns:    sc.SQLite.MaxIdleConns,
			ConnMaxLifetime: sc.SQLite.ConnMaxLifetime,
		},
			stores.WithLogger(logger.WithStore(stores.DriverSQLite, "").Zerolog()),
			stores.WithObserver(r.tel.Metrics),
			stores.WithTracer(r.tel.Tracer))
		if err != nil {
			return engine.NewInternalError("failed to create SQLite store", err)
		}
		if err := store.Init(ctx); err != nil {
			return engine.NewInternalError("failed to open SQLite store", err)
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return engine.NewInternalError("failed to migrate SQLite store", err)
		}
		r.sqlite = store
		r.store = store
	}
	return nil
}

// localStore returns the SQLite store for commands that need its extra queries.
func (r *runtime) localStore(ctx context.Context) (*stores.SQLiteStore, error) {
	if r.cfg.Store.Driver != config.StoreSQLite {
		return nil, engine.NewValidationError(
			fmt.Sprintf("this command needs the sqlite store, configured driver is %q", r.cfg.Store.Driver), nil)
	}
	if _, err := r.service(ctx); err != nil {
		return nil, err
	}
	return r.sqlite, nil
}

// Handle runs an invocation envelope. When envelopeStore is set, envelopes
// that name a workspace SQL API run against it; everything else uses the
// configured store.
func (r *runtime) Handle(ctx context.Context, req *closeops.Request) *closeops.Response {
	if !r.envelopeStore || req.APIURL == "" || req.WorkspaceID == "" {
		svc, err := r.service(ctx)
		if err != nil {
			return closeops.Failure(err)
		}
		return svc.Handle(ctx, req)
	}

	hc := httpConfig(r.cfg.Store.HTTP)
	hc.BaseURL = req.APIURL
	hc.Token = req.APIToken
	hc.WorkspaceID = req.WorkspaceID
	hc.STFID = req.STFID

	client, err := stores.NewHTTPClient(hc,
		stores.WithLogger(r.tel.Logger.WithStore(stores.DriverHTTP, req.WorkspaceID).Zerolog()),
		stores.WithObserver(r.tel.Metrics),
		stores.WithTracer(r.tel.Tracer))
	if err != nil {
		return closeops.Failure(engine.NewValidationError("invalid SQL API settings", err))
	}
	return r.newService(client).Handle(ctx, req)
}

func httpConfig(c config.HTTPStoreConfig) stores.HTTPConfig {
	return stores.HTTPConfig{
		BaseURL:         c.APIURL,
		Token:           c.APIToken,
		WorkspaceID:     c.WorkspaceID,
		STFID:           c.STFID,
		Timeout:         c.Timeout,
		MaxAttempts:     c.MaxAttempts,
		InitialInterval: c.InitialInterval,
		MaxInterval:     c.MaxInterval,
	}
}
