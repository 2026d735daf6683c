package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wfmk/wfmk/internal/config"
	"github.com/wfmk/wfmk/internal/engine"
	"github.com/wfmk/wfmk/internal/market"
)

// topOrdersShown limits the default orders listing to the users a
// trader would actually contact.
const topOrdersShown = 5

// itemLookup is one item's fully-filtered result, ready to render.
type itemLookup struct {
	Item    market.Item
	Orders  []market.Order
	Summary engine.PriceSummary
	Err     error
}

// executeLookup resolves the catalog, expands patterns, fetches order
// books, and renders the selected view. Per-item failures are reported
// and counted; the rest of the batch still completes.
func executeLookup(
	cmd *cobra.Command,
	params *rootParams,
	settings config.Settings,
	resolver *engine.Resolver,
	patterns []string,
) error {
	ctx := cmd.Context()

	catalog, err := resolver.ResolveCatalog(ctx)
	if err != nil {
		return fmt.Errorf("retrieving item catalog: %w", err)
	}

	matched, notFound := matchPatterns(catalog, patterns)
	for _, pattern := range notFound {
		cmd.PrintErrf("Error: %q not found\n", pattern)
	}

	if params.List {
		sortItemsByName(matched, params.Reverse)
		if err := renderList(cmd.OutOrStdout(), matched, settings.Output); err != nil {
			return err
		}
		return failureError(len(notFound), len(patterns))
	}

	results := resolver.ResolveOrdersBatch(ctx, matched)
	lookups := make([]itemLookup, 0, len(results))
	failed := len(notFound)
	for _, res := range results {
		if res.Err != nil {
			cmd.PrintErrf("Error: retrieving orders for %q: %v\n", res.Item.Name, res.Err)
			failed++
			continue
		}
		lookups = append(lookups, prepareLookup(res, params, settings))
	}

	if params.Summary {
		sort.SliceStable(lookups, func(i, j int) bool {
			return lookups[i].Item.Name < lookups[j].Item.Name
		})
		if err := renderSummaries(cmd.OutOrStdout(), lookups, settings); err != nil {
			return err
		}
	} else {
		if err := renderOrderLists(cmd.OutOrStdout(), lookups, params, settings); err != nil {
			return err
		}
	}

	return failureError(failed, len(notFound)+len(results))
}

// prepareLookup filters one item's order book down to displayable
// orders and computes its summary.
func prepareLookup(res engine.OrderResult, params *rootParams, settings config.Settings) itemLookup {
	wantType := market.OrderTypeSell
	if params.Buyers {
		wantType = market.OrderTypeBuy
	}

	orders := filterOrders(res.Orders, orderFilter{
		OrderType: wantType,
		Platform:  settings.Platform,
		Region:    settings.Language,
	})

	// Sellers sort cheapest first, buyers highest first; --reverse
	// flips either.
	descending := params.Buyers != params.Reverse
	sortOrdersByPrice(orders, descending)

	return itemLookup{
		Item:    res.Item,
		Orders:  orders,
		Summary: engine.Summarize(orders),
	}
}

// failureError converts a failure count into the command's exit error.
func failureError(failed, total int) error {
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d lookups failed", failed, total)
}
