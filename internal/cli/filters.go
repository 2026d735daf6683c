package cli

import (
	"sort"

	"github.com/wfmk/wfmk/internal/market"
)

// orderFilter selects the orders worth displaying: the requested side
// of the book, from online users, on the queried platform and region.
type orderFilter struct {
	OrderType market.OrderType
	Platform  market.Platform
	Region    string
}

func (f orderFilter) keep(o market.Order) bool {
	if o.OrderType != f.OrderType {
		return false
	}
	if !o.Online() {
		return false
	}
	if o.Platform != string(f.Platform) {
		return false
	}
	if o.Region != f.Region {
		return false
	}
	return true
}

// filterOrders returns the orders passing f, preserving arrival order.
func filterOrders(orders []market.Order, f orderFilter) []market.Order {
	var kept []market.Order
	for _, o := range orders {
		if f.keep(o) {
			kept = append(kept, o)
		}
	}
	return kept
}

// sortOrdersByPrice orders by platinum price, stable so equal-priced
// orders keep their arrival order.
func sortOrdersByPrice(orders []market.Order, descending bool) {
	sort.SliceStable(orders, func(i, j int) bool {
		if descending {
			i, j = j, i
		}
		return orders[i].Platinum < orders[j].Platinum
	})
}
