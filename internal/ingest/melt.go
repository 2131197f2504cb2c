// Package ingest reshapes wide expression matrices into long-form rows.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/exprgate/exprgate/internal/model"
)

// ErrMalformed is returned when an upload cannot be melted into expression rows.
var ErrMalformed = errors.New("malformed expression file")

// Melt reads a delimited matrix with a Gene column and one column per sample
// and returns one Expression per non-empty cell. Rows are emitted sample by
// sample, each sample walking the genes in file order.
func Melt(r io.Reader, delim rune) ([]model.Expression, error) {
	reader := csv.NewReader(r)
	reader.Comma = delim
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrMalformed)
	}

	header := records[0]
	geneCol := -1
	for i, name := range header {
		if strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) == model.ColumnGene {
			geneCol = i
			break
		}
	}
	if geneCol < 0 {
		return nil, fmt.Errorf("%w: missing %s column", ErrMalformed, model.ColumnGene)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: no sample columns", ErrMalformed)
	}

	body := records[1:]
	out := make([]model.Expression, 0, len(body)*(len(header)-1))

	for col, sample := range header {
		if col == geneCol {
			continue
		}
		sample = strings.TrimSpace(sample)
		if sample == "" {
			return nil, fmt.Errorf("%w: unnamed sample column %d", ErrMalformed, col+1)
		}

		for line, rec := range body {
			cell := strings.TrimSpace(rec[col])
			if cell == "" {
				continue
			}
			gene := strings.TrimSpace(rec[geneCol])
			if gene == "" {
				return nil, fmt.Errorf("%w: empty gene on line %d", ErrMalformed, line+2)
			}
			value, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %q: not a number", ErrMalformed, line+2, sample)
			}
			out = append(out, model.Expression{Gene: gene, Sample: sample, Value: value})
		}
	}

	return out, nil
}

// TableIDFromFilename derives a table identifier from an uploaded file name
// by dropping any directory components and everything after the first dot.
// The result is not validated.
func TableIDFromFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := path.Base(name)
	if base == "." || base == "/" {
		return ""
	}
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return base
}

// DelimiterFor picks the field delimiter from a file name.
func DelimiterFor(name string) rune {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".tsv") || strings.HasSuffix(lower, ".tab") {
		return '\t'
	}
	return ','
}
