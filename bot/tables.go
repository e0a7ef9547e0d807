package bot

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// stagingMarker excludes staging tables from suffix matching; they can still
// be requested by their exact name.
const stagingMarker = "STAGE"

// matchKind classifies the outcome of resolving one free-text table token.
type matchKind int

const (
	// matchNone means no catalog entry matched.
	matchNone matchKind = iota
	// matchExact means the token named exactly one catalog entry.
	matchExact
	// matchAmbiguous means the token is a suffix of several entries.
	matchAmbiguous
)

// candidate is the resolution of one table token.
type candidate struct {
	kind matchKind
	// name is the catalog spelling of the table on an exact match.
	name string
	// options are the suffix-matched catalog entries on an ambiguous match.
	options []string
}

// resolveTable matches input against the catalog. An exact (case-insensitive)
// match always wins, no matter where in the scan it is found; suffix matches
// are collected independently and only reported when no exact match exists.
// Blacklisted tables never match, and staging tables are excluded from suffix
// matching. Resolution is a pure function of its inputs: the same token
// against the same catalog and blacklist always yields the same candidate.
func resolveTable(input string, tables []string, blacklisted map[string]bool) candidate {
	var exact string
	var options []string

	for _, table := range tables {
		if blacklisted[strings.ToLower(table)] {
			continue
		}
		switch {
		case strings.EqualFold(table, input):
			exact = table
		case strings.HasSuffix(table, input) && !strings.Contains(table, stagingMarker):
			options = append(options, table)
		}
	}

	if exact != "" {
		return candidate{kind: matchExact, name: exact}
	}
	if len(options) > 0 {
		return candidate{kind: matchAmbiguous, options: options}
	}
	return candidate{kind: matchNone}
}

// tableSnapshot fetches the catalog and table blacklist once per turn so all
// tokens of one utterance resolve against the same view.
func (b *Bot) tableSnapshot(ctx context.Context) ([]string, map[string]bool, error) {
	tables, err := b.catalog.Tables(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "list catalog tables")
	}

	entries, err := b.blacklist.List(ctx, BlacklistTable)
	if err != nil {
		return nil, nil, errors.Wrap(err, "get table blacklist")
	}
	blacklisted := make(map[string]bool, len(entries))
	for _, e := range entries {
		blacklisted[strings.ToLower(e)] = true
	}

	return tables, blacklisted, nil
}

// splitTables splits a comma-separated utterance into trimmed table tokens.
func splitTables(input string) []string {
	var tokens []string
	for _, t := range strings.Split(input, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}
