package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/faizanr27/food-facts/internal/catalog"
	"github.com/faizanr27/food-facts/internal/format"
	"github.com/faizanr27/food-facts/internal/offapi"
)

var errProductNotFound = errors.New("product not found")

type showOptions struct {
	raw   bool
	width int
}

func newShowCmd(root *rootOptions) *cobra.Command {
	opts := &showOptions{}
	cmd := &cobra.Command{
		Use:   "show <barcode>",
		Short: "Print the detail of one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			detail, err := newCatalog(cfg).Product(cmd.Context(), strings.TrimSpace(args[0]))
			if errors.Is(err, offapi.ErrNotFound) {
				return errProductNotFound
			}
			if err != nil {
				return err
			}

			doc := productMarkdown(detail)
			if opts.raw {
				_, err := io.WriteString(cmd.OutOrStdout(), doc)
				return err
			}
			renderer, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(opts.width),
			)
			if err != nil {
				return fmt.Errorf("terminal renderer: %w", err)
			}
			out, err := renderer.Render(doc)
			if err != nil {
				return fmt.Errorf("render product: %w", err)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "print markdown without terminal styling")
	cmd.Flags().IntVar(&opts.width, "width", 80, "word wrap width")
	return cmd
}

// productMarkdown lays out the detail view as markdown.
func productMarkdown(d catalog.Detail) string {
	const na = "N/A"
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", format.OrNA(d.Name, na))
	fmt.Fprintf(&b, "Barcode `%s`, Nutri-Score **%s**\n\n", d.ID, format.GradeLabel(d.Grade, na))

	b.WriteString("## Ingredients\n\n")
	if text := strings.TrimSpace(d.IngredientsEN); text != "" {
		b.WriteString(format.MarkdownIngredients(text))
	} else {
		b.WriteString("No ingredient information available")
	}
	b.WriteString("\n\n## Nutrition Facts (per 100g)\n\n| Nutrient | Value |\n| --- | --- |\n")
	rows := []struct {
		label string
		value *float64
		unit  string
	}{
		{"Energy", d.Nutrients.EnergyKcal, "kcal"},
		{"Fat", d.Nutrients.Fat, "g"},
		{"Carbohydrates", d.Nutrients.Carbohydrates, "g"},
		{"Proteins", d.Nutrients.Proteins, "g"},
		{"Salt", d.Nutrients.Salt, "g"},
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "| %s | %s |\n", row.label, format.Nutrient(row.value, row.unit, "en", na))
	}

	b.WriteString("\n## Labels\n\n")
	labels := d.DisplayLabels()
	if len(labels) == 0 {
		b.WriteString("No label information available\n")
	}
	for _, label := range labels {
		fmt.Fprintf(&b, "- %s\n", label)
	}
	return b.String()
}
