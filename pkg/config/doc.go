// Package config loads closeflow runtime settings and task template catalogs.
//
// # Runtime configuration
//
// Load layers four sources, later ones winning:
//
//  1. Default() values (local SQLite store, built-in catalog, no policies)
//  2. an optional YAML file
//  3. an optional .env file
//  4. CLOSEFLOW_* environment variables (LOG_LEVEL is also read unprefixed)
//
// The result is checked with validator struct tags plus the store rules that
// depend on the selected driver.
//
//	cfg, err := config.Load("closeflow.yaml", "")
//	if err != nil {
//	    return err
//	}
//	tel, err := telemetry.NewTelemetry(cfg.ToTelemetry(version))
//
// # Catalogs
//
// CatalogParser reads a custom template catalog from CUE, YAML or JSON. CUE
// sources are unified with the built-in #Catalog schema, so comprehensions and
// hidden helper fields work as usual:
//
//	_accruals: ["AP", "Payroll"]
//	templates: [for a in _accruals {name: "Run \(a) accruals", category: "ACCRUALS", day: 1}]
//
// YAML and JSON files are validated against the same schema. Schema and field
// problems come back as ValidationErrors with file locations where CUE knows
// them; dependency problems are reported by engine.NewCatalog.
//
//	catalog, err := config.NewCatalogParser().LoadCatalog(ctx, "close.cue")
package config
