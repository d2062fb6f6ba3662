package seo

// OpenGraph carries og:* tags.
type OpenGraph struct {
	Title       string
	Description string
	Image       string
	Type        string
}

// Meta is the per-page head metadata.
type Meta struct {
	Title       string
	Description string
	Canonical   string
	OG          OpenGraph
	// JSONLD holds serialized schema.org payloads, one script tag each.
	JSONLD []string
}
