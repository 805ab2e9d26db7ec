// Package deffile decodes function definitions from YAML (or JSON)
// documents into model builders.
//
// A document holds either one function at the top level or a list under
// "functions":
//
//	functions:
//	  - archetype: list
//	    table:
//	      name: crew_hdr
//	      audit: {created_by: true, updated_by: true}
//	      columns:
//	        - {name: id, type: bigint}
//	        - {name: org_id, type: bigint}
//	    params:
//	      - {name: p_org_id, type: bigint, column: org_id}
package deffile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/markb/pgfngen/internal/archetype"
	"github.com/markb/pgfngen/internal/model"
)

// File is a decoded definition document.
type File struct {
	Functions []Function `yaml:"functions"`
}

// Function describes one function to generate.
type Function struct {
	Archetype string   `yaml:"archetype"`
	Name      string   `yaml:"name"`
	Table     Table    `yaml:"table"`
	Detail    *Detail  `yaml:"detail"`
	Params    []Param  `yaml:"params"`
	Messages  Messages `yaml:"messages"`
}

// Table describes the header table.
type Table struct {
	Name       string   `yaml:"name"`
	PrimaryKey string   `yaml:"primary_key"`
	Sort       string   `yaml:"sort"`
	Audit      Audit    `yaml:"audit"`
	Columns    []Column `yaml:"columns"`
}

// Detail describes the detail relation.
type Detail struct {
	Table      string  `yaml:"table"`
	Alias      string  `yaml:"alias"`
	ForeignKey string  `yaml:"foreign_key"`
	Sort       string  `yaml:"sort"`
	Audit      Audit   `yaml:"audit"`
	Columns    Columns `yaml:"columns"`
}

// Audit declares audit columns.
type Audit struct {
	CreatedBy bool `yaml:"created_by"`
	UpdatedBy bool `yaml:"updated_by"`
}

// Column is a declared column.
type Column struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Ordinal int    `yaml:"ordinal"`
}

// Columns is a column list, or "*" for every column of the row.
type Columns struct {
	All  bool
	List []Column
}

// UnmarshalYAML accepts a sequence of columns or the scalar "*".
func (c *Columns) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		if value.Value != "*" {
			return fmt.Errorf("line %d: columns must be a list or \"*\", got %q", value.Line, value.Value)
		}
		c.All = true
		return nil
	}
	return value.Decode(&c.List)
}

// Param is a function parameter. Name defaults to "p_<column>" and type
// to the column's type.
type Param struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Column string `yaml:"column"`
}

// Messages holds the status messages.
type Messages struct {
	Success  string `yaml:"success"`
	NotFound string `yaml:"not_found"`
}

// Decode reads a definition document. Unknown keys are rejected.
func Decode(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read definitions: %w", err)
	}

	var probe map[string]any
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse definitions: %w", err)
	}

	f := &File{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if _, ok := probe["functions"]; ok {
		err = dec.Decode(f)
	} else {
		var fn Function
		err = dec.Decode(&fn)
		f.Functions = []Function{fn}
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse definitions: %w", err)
	}
	if len(f.Functions) == 0 || (len(probe) == 0) {
		return nil, fmt.Errorf("no function definitions found")
	}
	return f, nil
}

// ReadFile decodes the definition document at path.
func ReadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open definitions: %w", err)
	}
	defer fh.Close()
	return Decode(fh)
}

// Builder converts the description into a model builder.
func (f *Function) Builder() (*model.FunctionBuilder, error) {
	kind, err := archetype.ParseKind(f.Archetype)
	if err != nil {
		return nil, err
	}

	tb := model.NewTable(f.Table.Name).Audit(f.Table.Audit.CreatedBy, f.Table.Audit.UpdatedBy)
	if f.Table.PrimaryKey != "" {
		tb.PrimaryKey(f.Table.PrimaryKey)
	}
	if f.Table.Sort != "" {
		tb.SortBy(f.Table.Sort)
	}
	for i, c := range f.Table.Columns {
		ordinal := c.Ordinal
		if ordinal == 0 {
			ordinal = i + 1
		}
		tb.ColumnAt(c.Name, c.Type, ordinal)
	}

	fb := model.NewFunction(kind).On(tb)
	if f.Name != "" {
		fb.Name(f.Name)
	}

	if d := f.Detail; d != nil {
		db := model.NewDetail(d.Table).
			ForeignKey(d.ForeignKey).
			Audit(d.Audit.CreatedBy, d.Audit.UpdatedBy)
		if d.Alias != "" {
			db.As(d.Alias)
		}
		if d.Sort != "" {
			db.SortBy(d.Sort)
		}
		if d.Columns.All {
			db.AllColumns()
		}
		for i, c := range d.Columns.List {
			ordinal := c.Ordinal
			if ordinal == 0 {
				ordinal = i + 1
			}
			db.ColumnAt(c.Name, c.Type, ordinal)
		}
		fb.WithDetail(db)
	}

	for _, p := range f.Params {
		fb.Param(p.Name, p.Type, p.Column)
	}

	success, notFound := f.Messages.Success, f.Messages.NotFound
	if success == "" {
		success = model.DefaultSuccessMessage
	}
	if notFound == "" {
		notFound = model.DefaultNotFoundMessage
	}
	fb.Messages(success, notFound)

	return fb, nil
}

// Build resolves every function in the document. Problems of all
// functions are reported together, each prefixed with its index.
func (f *File) Build() ([]*model.Function, error) {
	var fns []*model.Function
	var errs []error

	for i := range f.Functions {
		fb, err := f.Functions[i].Builder()
		if err != nil {
			errs = append(errs, fmt.Errorf("functions[%d]: %w", i, err))
			continue
		}
		fn, err := fb.Build()
		if err != nil {
			errs = append(errs, fmt.Errorf("functions[%d]: %w", i, err))
			continue
		}
		fns = append(fns, fn)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return fns, nil
}
