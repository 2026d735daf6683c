package market

import "fmt"

// Platform identifies the game distribution channel a query is scoped to.
type Platform string

// Supported platforms, matching the API's Platform header values.
const (
	PlatformPC     Platform = "pc"
	PlatformPS4    Platform = "ps4"
	PlatformSwitch Platform = "switch"
	PlatformXbox   Platform = "xbox"
)

// Platforms lists every supported platform, in flag-help order.
func Platforms() []Platform {
	return []Platform{PlatformPC, PlatformPS4, PlatformSwitch, PlatformXbox}
}

// ParsePlatform validates a platform string from configuration or flags.
func ParsePlatform(s string) (Platform, error) {
	for _, p := range Platforms() {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q (expected one of pc, ps4, switch, xbox)", s)
}

// Item is one tradeable item from the catalog listing.
type Item struct {
	ID      string `json:"id"`
	Name    string `json:"item_name"`
	URLName string `json:"url_name"`
}

// OrderType distinguishes buy listings from sell listings.
type OrderType string

const (
	OrderTypeBuy  OrderType = "buy"
	OrderTypeSell OrderType = "sell"
)

// OrderUser is the subset of the order's user record the tool consumes.
type OrderUser struct {
	IngameName string `json:"ingame_name"`
	Status     string `json:"status"`
}

// Order is a single user's open buy or sell listing for one item.
// Prices are in platinum; Region carries the language code the listing
// was posted under.
type Order struct {
	ID        string    `json:"id"`
	User      OrderUser `json:"user"`
	Platform  string    `json:"platform"`
	Region    string    `json:"region"`
	OrderType OrderType `json:"order_type"`
	Platinum  float64   `json:"platinum"`
	Quantity  int       `json:"quantity"`
	Visible   bool      `json:"visible"`
}

// Online reports whether the listing's user is reachable in game or on
// the site. Offline users' listings are typically filtered from display.
func (o Order) Online() bool {
	return o.User.Status != "offline"
}
