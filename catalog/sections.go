// Package catalog defines the storefront's data sections and assembles
// publishable snapshots from the document store.
package catalog

// SectionNames enumerates every collection the storefront snapshot
// carries. The set is fixed; the collector never discovers paths
// dynamically. Each name doubles as the document store path.
var SectionNames = []string{
	"products",
	"categories",
	"orders",
	"coupons",
	"taxes",
	"banners",
	"hero_settings",
	"footer_settings",
	"navigation_settings",
	"theme_settings",
	"brand_settings",
	"bill_settings",
	"contact_settings",
	"social_links",
	"shipping_settings",
	"payment_settings",
	"tryon_settings",
	"testimonials",
	"faqs",
	"pages",
	"announcements",
	"seo_settings",
	"gallery",
	"featured_products",
	"size_guides",
	"return_policy",
	"store_info",
}

// IsKnownSection reports whether name is one of the fixed section names.
func IsKnownSection(name string) bool {
	for _, s := range SectionNames {
		if s == name {
			return true
		}
	}
	return false
}
