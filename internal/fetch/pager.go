// Package fetch is the paginated HTTP layer shared by every integration.
package fetch

import (
	"context"

	"github.com/spiffcs/devpulse/internal/constants"
)

// Page is one page of results. Next is the cursor for the following page
// (a page number or an offset, depending on the API) and is only read
// when More is true.
type Page[T any] struct {
	Items []T
	Next  int
	More  bool
}

// PageFunc fetches the page at cursor.
type PageFunc[T any] func(ctx context.Context, cursor int) (Page[T], error)

// All walks pages starting at first until the API reports no more pages
// or limit items have been collected. A limit of zero or less uses
// constants.DefaultItemCap. Items keep server order. If any page fails,
// the items gathered so far are dropped and only the error is returned.
func All[T any](ctx context.Context, limit, first int, fetch PageFunc[T]) ([]T, error) {
	if limit <= 0 {
		limit = constants.DefaultItemCap
	}

	var items []T
	cursor := first
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
		if len(items) >= limit {
			return items[:limit], nil
		}
		if !page.More || len(page.Items) == 0 {
			return items, nil
		}
		cursor = page.Next
	}
}

// PageSize returns the page size to request so a single page never asks
// for more than the remaining cap.
func PageSize(limit, max int) int {
	if limit <= 0 {
		limit = constants.DefaultItemCap
	}
	if limit < max {
		return limit
	}
	return max
}
