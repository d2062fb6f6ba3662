package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/faizanr27/food-facts/internal/catalog"
	"github.com/faizanr27/food-facts/internal/format"
)

type searchOptions struct {
	category string
	sort     string
	page     int
	pageSize int
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b6b70"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#b00020")).Bold(true)

	gradeColors = map[catalog.Grade]lipgloss.Color{
		"a": lipgloss.Color("#038141"),
		"b": lipgloss.Color("#85bb2f"),
		"c": lipgloss.Color("#fecb02"),
		"d": lipgloss.Color("#ee8100"),
		"e": lipgloss.Color("#e63e11"),
	}
)

func newSearchCmd(root *rootOptions) *cobra.Command {
	opts := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search [terms]",
		Short: "Print one page of the product list",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			pageSize := opts.pageSize
			if pageSize <= 0 {
				pageSize = cfg.Catalog.PageSize
			}
			q := catalog.Query{PageSize: pageSize, Page: opts.page, Locale: cfg.Locale.Default}
			if len(args) == 1 {
				q = q.WithSearch(args[0])
			}
			q = q.WithCategory(opts.category).WithSort(catalog.ParseSort(opts.sort)).WithPage(opts.page)

			listing, err := newCatalog(cfg).Browse(cmd.Context(), q)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render(listErrorMessage(err)))
				return err
			}
			writeListing(cmd.OutOrStdout(), listing)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.category, "category", "", "category name to filter by")
	cmd.Flags().StringVar(&opts.sort, "sort", "", "sort key: name-asc, name-desc, grade-asc, grade-desc")
	cmd.Flags().IntVar(&opts.page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", 0, "products per page (defaults to FOODFACTS_PAGE_SIZE)")
	return cmd
}

func listErrorMessage(err error) string {
	if errors.Is(err, catalog.ErrNoProducts) {
		return "No products found"
	}
	return "An error occurred while fetching data"
}

func writeListing(w io.Writer, listing catalog.Listing) {
	page := listing.Page
	if page.Empty() {
		fmt.Fprintln(w, mutedStyle.Render("No products match your filters."))
		return
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Barcode", "Name", "Category", "Grade").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, item := range page.Items {
		t.Row(item.ID, truncateCell(format.OrNA(item.Name, "N/A"), 40), truncateCell(format.OrNA(item.FirstCategory(), "N/A"), 30), gradeCell(item.Grade))
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("page %d of %d, %d products", page.Page, page.TotalPages, page.Total)))
}

func gradeCell(g catalog.Grade) string {
	label := format.GradeLabel(g, "N/A")
	color, ok := gradeColors[g]
	if !ok {
		return label
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true).Render(label)
}

func truncateCell(s string, limit int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-1]) + "…"
}
