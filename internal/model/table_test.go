package model

import (
	"errors"
	"strings"
	"testing"
)

func TestIsValidIdentifier(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want bool
	}{
		{name: "letters digits underscore", in: "abc_123", want: true},
		{name: "upper case", in: "Exp_AT_2021", want: true},
		{name: "hyphen", in: "abc-123", want: false},
		{name: "space", in: "abc 123", want: false},
		{name: "quote", in: `abc"; DROP TABLE accounts; --`, want: false},
		{name: "dot", in: "public.accounts", want: false},
		{name: "non-ascii letter", in: "donnée", want: false},
		// No offending character, so the bare check accepts it.
		{name: "empty", in: "", want: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsValidIdentifier(tc.in); got != tc.want {
				t.Errorf("IsValidIdentifier(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestValidateTableID(t *testing.T) {
	testCases := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "valid", in: "sample_data", wantErr: false},
		{name: "empty rejected", in: "", wantErr: true},
		{name: "hyphen rejected", in: "sample-data", wantErr: true},
		{name: "max length", in: strings.Repeat("a", MaxTableIDLength), wantErr: false},
		{name: "too long", in: strings.Repeat("a", MaxTableIDLength+1), wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTableID(tc.in)
			if tc.wantErr && !errors.Is(err, ErrInvalidTableID) {
				t.Errorf("ValidateTableID(%q) = %v, want ErrInvalidTableID", tc.in, err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("ValidateTableID(%q) unexpected error: %v", tc.in, err)
			}
		})
	}
}

func TestTableHandle_IsExpressionTable(t *testing.T) {
	full := &TableHandle{Name: "t", Columns: []string{ColumnIndex, ColumnGene, ColumnSample, ColumnValue}}
	if !full.IsExpressionTable() {
		t.Error("expected table with Gene, Sample, Value to be an expression table")
	}

	partial := &TableHandle{Name: "t", Columns: []string{ColumnGene, ColumnValue}}
	if partial.IsExpressionTable() {
		t.Error("expected table without Sample to be rejected")
	}

	// Column names are case-sensitive in quoted PostgreSQL identifiers.
	lower := &TableHandle{Name: "t", Columns: []string{"gene", "sample", "value"}}
	if lower.IsExpressionTable() {
		t.Error("expected lower-case columns to be rejected")
	}
}

func TestLoadModeFromOverwrite(t *testing.T) {
	if got := LoadModeFromOverwrite(true); got != LoadReplace {
		t.Errorf("overwrite=true: got %q, want %q", got, LoadReplace)
	}
	if got := LoadModeFromOverwrite(false); got != LoadAppend {
		t.Errorf("overwrite=false: got %q, want %q", got, LoadAppend)
	}
}
