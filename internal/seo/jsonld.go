package seo

import (
	"encoding/json"
	"strings"
)

// JSON marshals v to a compact JSON string. It returns an empty string on error.
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// WebSite returns a minimal WebSite schema with optional SearchAction.
func WebSite(name, url, searchActionURL string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	if searchActionURL != "" {
		m["potentialAction"] = map[string]any{
			"@type":       "SearchAction",
			"target":      searchActionURL + "{search_term_string}",
			"query-input": "required name=search_term_string",
		}
	}
	return m
}

// BreadcrumbItem maps name and absolute item URL.
type BreadcrumbItem struct {
	Name string
	Item string
}

// BreadcrumbList builds schema.org BreadcrumbList.
func BreadcrumbList(items []BreadcrumbItem) map[string]any {
	el := make([]map[string]any, 0, len(items))
	for i, it := range items {
		el = append(el, map[string]any{
			"@type":    "ListItem",
			"position": i + 1,
			"name":     it.Name,
			"item":     it.Item,
		})
	}
	return map[string]any{
		"@context":        "https://schema.org",
		"@type":           "BreadcrumbList",
		"itemListElement": el,
	}
}

// ProductInfo is the data behind a Product payload.
type ProductInfo struct {
	Name        string
	Description string
	URL         string
	ImageURL    string
	Barcode     string
	// Calories per 100 g, empty when unknown.
	Calories string
}

// Product returns a minimal product schema payload. Barcodes of 8, 12, 13 or
// 14 digits are also emitted as the matching GTIN property.
func Product(p ProductInfo) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "Product",
		"name":     p.Name,
	}
	if p.Description != "" {
		m["description"] = p.Description
	}
	if p.URL != "" {
		m["url"] = p.URL
	}
	if p.ImageURL != "" {
		m["image"] = p.ImageURL
	}
	if p.Barcode != "" {
		m["sku"] = p.Barcode
		if key := gtinKey(p.Barcode); key != "" {
			m[key] = p.Barcode
		}
	}
	if p.Calories != "" {
		m["nutrition"] = map[string]any{
			"@type":       "NutritionInformation",
			"servingSize": "100 g",
			"calories":    p.Calories,
		}
	}
	return m
}

func gtinKey(code string) string {
	if strings.Trim(code, "0123456789") != "" {
		return ""
	}
	switch len(code) {
	case 8:
		return "gtin8"
	case 12:
		return "gtin12"
	case 13:
		return "gtin13"
	case 14:
		return "gtin14"
	default:
		return ""
	}
}
