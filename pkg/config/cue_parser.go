package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ledgerworks/closeflow/pkg/engine"
)

// CatalogParser reads task template catalogs from CUE, YAML or JSON files.
type CatalogParser struct {
	schemaRegistry *SchemaRegistry
	validator      *validator.Validate
}

// NewCatalogParser creates a new catalog parser.
func NewCatalogParser() *CatalogParser {
	return &CatalogParser{
		schemaRegistry: NewSchemaRegistry(),
		validator:      validator.New(),
	}
}

// LoadCatalog parses, validates and compiles a catalog file.
// Schema and structural problems come back as ValidationErrors; dependency
// problems (unknown names, cycles) come back from engine.NewCatalog.
func (cp *CatalogParser) LoadCatalog(ctx context.Context, path string) (*engine.Catalog, error) {
	file, err := cp.ParseFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return file.Compile()
}

// ParseFile reads a catalog file and checks it against the catalog schema.
func (cp *CatalogParser) ParseFile(ctx context.Context, path string) (*CatalogFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return cp.parseCUE(path, string(content))
	case ".yaml", ".yml", ".json":
		return cp.parseYAML(ctx, path, content)
	default:
		return nil, fmt.Errorf("unsupported catalog file type: %s", path)
	}
}

// ParseInline parses CUE catalog content.
func (cp *CatalogParser) ParseInline(_ context.Context, content string) (*CatalogFile, error) {
	return cp.parseCUE("inline", content)
}

func (cp *CatalogParser) parseCUE(filename, content string) (*CatalogFile, error) {
	schema, _ := cp.schemaRegistry.GetSchema(SchemaCatalog)

	val := cp.schemaRegistry.Context().CompileString(content, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return nil, ValidationErrors(convertCUEErrors(err))
	}

	unified := schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, ValidationErrors(convertCUEErrors(err))
	}

	var file CatalogFile
	if err := unified.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode catalog %s: %w", filename, err)
	}

	if err := cp.validate(filename, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

func (cp *CatalogParser) parseYAML(ctx context.Context, filename string, content []byte) (*CatalogFile, error) {
	var file CatalogFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, ValidationErrors{{File: filename, Message: err.Error()}}
	}

	if err := cp.validate(filename, &file); err != nil {
		return nil, err
	}

	if err := cp.schemaRegistry.ValidateAgainstSchema(ctx, SchemaCatalog, &file); err != nil {
		return nil, ValidationErrors{{File: filename, Message: err.Error()}}
	}
	return &file, nil
}

// validate applies the struct tag rules and reports each failing field.
func (cp *CatalogParser) validate(filename string, file *CatalogFile) error {
	err := cp.validator.Struct(file)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return ValidationErrors{{File: filename, Message: err.Error()}}
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			File:    filename,
			Path:    strings.TrimPrefix(fe.Namespace(), "CatalogFile."),
			Message: fmt.Sprintf("failed %q rule (value %v)", fe.Tag(), fe.Value()),
		})
	}
	return out
}

// Compile turns the file into an engine catalog.
func (f *CatalogFile) Compile() (*engine.Catalog, error) {
	templates := make([]engine.TaskTemplate, len(f.Templates))
	for i, t := range f.Templates {
		templates[i] = engine.TaskTemplate{
			Name:      t.Name,
			Category:  t.Category,
			Day:       t.Day,
			DependsOn: t.Dependencies,
		}
	}
	return engine.NewCatalog(templates)
}

// convertCUEErrors converts CUE errors to ValidationError slice.
func convertCUEErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	for _, e := range errors.Errors(err) {
		var file string
		var line, column int

		if pos := errors.Positions(e); len(pos) > 0 {
			file = pos[0].Filename()
			line = pos[0].Line()
			column = pos[0].Column()
		}

		validationErrors = append(validationErrors, ValidationError{
			File:    file,
			Line:    line,
			Column:  column,
			Path:    strings.Join(e.Path(), "."),
			Message: errors.Details(e, nil),
		})
	}

	return validationErrors
}
