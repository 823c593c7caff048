// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scholar queries bibliographic metadata providers and
// normalizes their records into the shared Paper shape. Each provider
// client performs exactly one HTTP round trip per page; normalization is
// pure, so the same payload always yields the same Papers.
package scholar

import (
	"context"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Page holds the paging parameters common to all providers. Cursor is
// provider-opaque: an empty cursor requests the first page, anything
// else is passed back to the provider verbatim.
type Page struct {
	Cursor  string
	PerPage int
}

// Provider searches a single bibliographic source. Each provider
// (OpenAlex, Crossref, arXiv, Europe PMC) implements this interface per
// the Strategy pattern.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, page Page, cfg types.ScholarConfig) (types.PagedPapers, error)
}

// clampPerPage folds a requested page size into [1, max], substituting
// def when the request leaves it unset. Out-of-range values are clamped
// silently, never rejected.
func clampPerPage(requested, def, max int) int {
	if requested <= 0 {
		requested = def
	}
	if requested < 1 {
		requested = 1
	}
	if requested > max {
		requested = max
	}
	return requested
}

// cursorOr returns the verbatim cursor, or the provider's first-page
// sentinel when the caller has none yet.
func cursorOr(cursor, sentinel string) string {
	if cursor == "" {
		return sentinel
	}
	return cursor
}
