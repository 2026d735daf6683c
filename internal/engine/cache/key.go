package cache

import "fmt"

// CatalogKey identifies the full catalog listing for one platform and
// language pair. Entries for different pairs never collide.
func CatalogKey(platform, lang string) string {
	return fmt.Sprintf("items-%s-%s", platform, lang)
}

// OrdersKey identifies one item's order book, scoped by platform and
// language.
func OrdersKey(urlName, platform, lang string) string {
	return fmt.Sprintf("%s-orders-%s-%s", urlName, platform, lang)
}
