package config

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Schema names.
const (
	SchemaCatalog  = "catalog"
	SchemaTemplate = "template"
)

// SchemaRegistry manages CUE schemas for validation.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	sr := &SchemaRegistry{
		ctx:     cuecontext.New(),
		schemas: make(map[string]cue.Value),
	}

	sr.registerBuiltInSchemas()

	return sr
}

// registerBuiltInSchemas registers all built-in schemas.
// The built-in definitions are constants and always compile.
func (sr *SchemaRegistry) registerBuiltInSchemas() {
	base := sr.ctx.CompileString(builtinCatalogSchema, cue.Filename("catalog_schema.cue"))

	sr.schemas[SchemaTemplate] = base.LookupPath(cue.ParsePath("#Template"))
	sr.schemas[SchemaCatalog] = base.LookupPath(cue.ParsePath("#Catalog"))
}

// RegisterSchema compiles a CUE schema and registers it under name.
func (sr *SchemaRegistry) RegisterSchema(name, schema string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(schema)
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	sr.schemas[name] = val
	return nil
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// Context returns the CUE context schemas were compiled in.
// Values unified with registered schemas must come from it.
func (sr *SchemaRegistry) Context() *cue.Context {
	return sr.ctx
}

// ValidateAgainstSchema validates Go data against a named schema.
func (sr *SchemaRegistry) ValidateAgainstSchema(_ context.Context, schemaName string, data interface{}) error {
	schema, ok := sr.GetSchema(schemaName)
	if !ok {
		return fmt.Errorf("schema %s not found", schemaName)
	}

	dataVal := sr.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	unified := schema.Unify(dataVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// ListSchemas returns all registered schema names, sorted.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const builtinCatalogSchema = `
// Template is one close task definition.
#Template: {
	// Name is unique within the catalog.
	name: string & !=""

	// Category groups tasks for ownership, upper case (e.g. "RECONCILIATION").
	category: string & =~"^[A-Z][A-Z0-9_]*$"

	// Day is the close day the task is scheduled on (T+day).
	day: int & >=1

	// Dependencies are names of templates that must complete first.
	dependencies?: [...string & !=""]
}

// Catalog is an ordered list of templates.
#Catalog: {
	version?: string
	templates: [...#Template] & [_, ...]
}
`
