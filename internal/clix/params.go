// Package clix holds small helpers shared by the CLI commands.
package clix

import (
	"github.com/spf13/pflag"
)

type PaginationParams struct {
	Limit  int
	Offset int
}

// ParsePagination reads the standard --limit/--offset flags, clamping
// nonsense values to defaults.
func ParsePagination(flags *pflag.FlagSet) PaginationParams {
	limit, _ := flags.GetInt("limit")
	offset, _ := flags.GetInt("offset")
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return PaginationParams{Limit: limit, Offset: offset}
}
