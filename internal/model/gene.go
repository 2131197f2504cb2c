package model

import (
	"errors"
	"regexp"
)

// ErrInvalidGeneID is returned for gene identifiers that fail validation.
var ErrInvalidGeneID = errors.New("invalid gene ID")

// arabidopsisGenePattern matches AGI locus codes such as At1g01010.
var arabidopsisGenePattern = regexp.MustCompile(`(?i)^AT[12345CM]G\d+$`)

// IsValidGeneID reports whether gene is a well-formed Arabidopsis locus.
func IsValidGeneID(gene string) bool {
	return arabidopsisGenePattern.MatchString(gene)
}
