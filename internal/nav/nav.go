package nav

import (
	"strings"
)

// Item represents a top-level navigation item.
type Item struct {
	Path     string // e.g. "/about"
	LabelKey string // i18n key, e.g. "nav.about"
}

// RenderedItem is a view model for templates.
type RenderedItem struct {
	Href     string
	LabelKey string
	Active   bool
}

// Crumb represents a breadcrumb entry. If LabelKey is empty, use Label.
type Crumb struct {
	Href     string
	LabelKey string
	Label    string
	Active   bool
}

// Main is the primary navigation definition.
var Main = []Item{
	{Path: "/", LabelKey: "nav.home"},
	{Path: "/about", LabelKey: "nav.about"},
}

// Language is a language switch link.
type Language struct {
	Code   string
	Href   string
	Active bool
}

// Build renders navigation items with active state given the current path.
func Build(currentPath string) []RenderedItem {
	if currentPath == "" {
		currentPath = "/"
	}
	items := make([]RenderedItem, 0, len(Main))
	for _, it := range Main {
		items = append(items, RenderedItem{
			Href:     it.Path,
			LabelKey: it.LabelKey,
			Active:   isActive(it.Path, currentPath),
		})
	}
	return items
}

func isActive(itemPath, currentPath string) bool {
	if itemPath == "/" {
		// the list and its product pages share the home entry
		return currentPath == "/" || strings.HasPrefix(currentPath, "/product/")
	}
	return currentPath == itemPath || strings.HasPrefix(currentPath, itemPath+"/")
}

// Languages builds ?hl= switch links that keep the current path and query.
func Languages(currentPath, rawQuery string, supported []string, active string) []Language {
	out := make([]Language, 0, len(supported))
	for _, code := range supported {
		out = append(out, Language{
			Code:   code,
			Href:   withLang(currentPath, rawQuery, code),
			Active: code == active,
		})
	}
	return out
}

func withLang(currentPath, rawQuery, code string) string {
	if currentPath == "" {
		currentPath = "/"
	}
	kept := make([]string, 0, 4)
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" || strings.HasPrefix(part, "hl=") {
			continue
		}
		kept = append(kept, part)
	}
	kept = append(kept, "hl="+code)
	return currentPath + "?" + strings.Join(kept, "&")
}

// ProductCrumbs returns Home > product name.
func ProductCrumbs(productID, productName string) []Crumb {
	return []Crumb{
		{Href: "/", LabelKey: "nav.home"},
		{Href: "/product/" + productID, Label: productName, Active: true},
	}
}
