package model

import (
	"errors"
	"regexp"
	"slices"
)

// Column names every expression table carries.
const (
	ColumnIndex  = "index"
	ColumnGene   = "Gene"
	ColumnSample = "Sample"
	ColumnValue  = "Value"
)

// MaxTableIDLength is the PostgreSQL identifier limit in bytes.
const MaxTableIDLength = 63

// Table errors.
var (
	ErrInvalidTableID = errors.New("invalid table identifier")
	ErrTableNotFound  = errors.New("table not found")
	ErrMalformedTable = errors.New("table is missing expression columns")
)

// invalidIdentifierChars matches any character outside the allow-list.
var invalidIdentifierChars = regexp.MustCompile(`[^_0-9A-Za-z]`)

// IsValidIdentifier reports whether s contains only letters, digits and
// underscores. The empty string has no offending character and is therefore
// valid; use ValidateTableID before interpolating a name into SQL.
func IsValidIdentifier(s string) bool {
	return !invalidIdentifierChars.MatchString(s)
}

// ValidateTableID checks that id can be safely used as a table name.
func ValidateTableID(id string) error {
	if id == "" || len(id) > MaxTableIDLength || !IsValidIdentifier(id) {
		return ErrInvalidTableID
	}
	return nil
}

// TableHandle describes a resolved expression table.
type TableHandle struct {
	Name    string
	Columns []string
}

// HasColumn reports whether the table has the named column.
func (t *TableHandle) HasColumn(name string) bool {
	return slices.Contains(t.Columns, name)
}

// IsExpressionTable reports whether the table carries Gene, Sample and Value.
func (t *TableHandle) IsExpressionTable() bool {
	return t.HasColumn(ColumnGene) && t.HasColumn(ColumnSample) && t.HasColumn(ColumnValue)
}

// Expression is one long-form row of an expression table.
type Expression struct {
	Gene   string
	Sample string
	Value  float64
}

// LoadMode selects how an ingestion treats an existing table.
type LoadMode string

const (
	LoadAppend  LoadMode = "append"
	LoadReplace LoadMode = "replace"
)

// LoadModeFromOverwrite maps a caller's overwrite flag to a LoadMode.
func LoadModeFromOverwrite(overwrite bool) LoadMode {
	if overwrite {
		return LoadReplace
	}
	return LoadAppend
}
