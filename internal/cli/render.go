package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/wfmk/wfmk/internal/config"
	"github.com/wfmk/wfmk/internal/market"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
)

// isWriterTerminal reports whether w is an interactive terminal, which
// selects styled output over plain text.
func isWriterTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// pricePrinter formats platinum amounts with the locale's digit
// grouping.
func pricePrinter(lang string) *message.Printer {
	return message.NewPrinter(language.Make(lang))
}

// formatPrice renders a platinum amount, dropping the fraction when the
// value is whole (the common case).
func formatPrice(p *message.Printer, v float64) string {
	if v == math.Trunc(v) {
		return p.Sprintf("%d", int64(v))
	}
	return p.Sprintf("%.1f", v)
}

// renderList prints matched item names, one per line, or the item
// descriptors for machine-readable formats.
func renderList(w io.Writer, items []market.Item, output string) error {
	switch output {
	case config.OutputJSON:
		return writeJSON(w, items)
	case config.OutputNDJSON:
		for _, item := range items {
			if err := writeNDJSONLine(w, item); err != nil {
				return err
			}
		}
		return nil
	default:
		for _, item := range items {
			if _, err := fmt.Fprintln(w, item.Name); err != nil {
				return err
			}
		}
		return nil
	}
}

// ordersDocument is the machine-readable shape of one item's orders.
type ordersDocument struct {
	Item    string         `json:"item"`
	URLName string         `json:"url_name"`
	Orders  []market.Order `json:"orders"`
}

// renderOrderLists prints one block per item: a heading and a
// Username/Price/Count table of the top orders.
func renderOrderLists(w io.Writer, lookups []itemLookup, params *rootParams, settings config.Settings) error {
	if settings.Output == config.OutputJSON || settings.Output == config.OutputNDJSON {
		return renderOrdersMachine(w, lookups, params, settings.Output)
	}

	styled := isWriterTerminal(w)
	printer := pricePrinter(settings.Language)

	side := "Sellers"
	if params.Buyers {
		side = "Buyers"
	}

	for _, lookup := range lookups {
		orders := lookup.Orders
		if !params.All && len(orders) > topOrdersShown {
			orders = orders[:topOrdersShown]
		}

		heading := fmt.Sprintf("--- %s %s ---", lookup.Item.Name, side)
		if styled {
			heading = sectionStyle.Render(heading)
		}
		if _, err := fmt.Fprintln(w, heading); err != nil {
			return err
		}

		rows := make([][]string, 0, len(orders))
		for _, o := range orders {
			rows = append(rows, []string{
				o.User.IngameName,
				formatPrice(printer, o.Platinum),
				printer.Sprintf("%d", o.Quantity),
			})
		}
		if err := renderColumns(w, []string{"Username", "Price", "Count"}, rows, styled); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}

	return nil
}

func renderOrdersMachine(w io.Writer, lookups []itemLookup, params *rootParams, output string) error {
	docs := make([]ordersDocument, 0, len(lookups))
	for _, lookup := range lookups {
		orders := lookup.Orders
		if !params.All && len(orders) > topOrdersShown {
			orders = orders[:topOrdersShown]
		}
		docs = append(docs, ordersDocument{
			Item:    lookup.Item.Name,
			URLName: lookup.Item.URLName,
			Orders:  orders,
		})
	}

	if output == config.OutputJSON {
		return writeJSON(w, docs)
	}
	for _, doc := range docs {
		if err := writeNDJSONLine(w, doc); err != nil {
			return err
		}
	}
	return nil
}

// summaryDocument is the machine-readable shape of one summary row.
type summaryDocument struct {
	Item   string   `json:"item"`
	Count  int      `json:"count"`
	Min    *float64 `json:"min"`
	Avg5   *float64 `json:"avg5"`
	Max    *float64 `json:"max"`
	StDev5 *float64 `json:"stdev5"`
}

// renderSummaries prints the one-row-per-item price summary table.
func renderSummaries(w io.Writer, lookups []itemLookup, settings config.Settings) error {
	if settings.Output == config.OutputJSON || settings.Output == config.OutputNDJSON {
		return renderSummariesMachine(w, lookups, settings.Output)
	}

	styled := isWriterTerminal(w)
	printer := pricePrinter(settings.Language)

	rows := make([][]string, 0, len(lookups))
	for _, lookup := range lookups {
		s := lookup.Summary
		row := []string{lookup.Item.Name, "N/A", "N/A", "N/A", "N/A", printer.Sprintf("%d", s.Count)}
		if s.Count > 0 {
			row[1] = formatPrice(printer, s.Min)
			row[2] = formatPrice(printer, math.Round(s.Avg))
			row[3] = formatPrice(printer, s.Max)
		}
		if s.HasStdDev {
			row[4] = formatPrice(printer, math.Round(s.StdDev))
		}
		rows = append(rows, row)
	}

	return renderColumns(w, []string{"Item", "Min", "Avg5", "Max", "StDev5", "Count"}, rows, styled)
}

func renderSummariesMachine(w io.Writer, lookups []itemLookup, output string) error {
	docs := make([]summaryDocument, 0, len(lookups))
	for _, lookup := range lookups {
		s := lookup.Summary
		doc := summaryDocument{Item: lookup.Item.Name, Count: s.Count}
		if s.Count > 0 {
			minV, avg, maxV := s.Min, math.Round(s.Avg), s.Max
			doc.Min, doc.Avg5, doc.Max = &minV, &avg, &maxV
		}
		if s.HasStdDev {
			dev := math.Round(s.StdDev)
			doc.StDev5 = &dev
		}
		docs = append(docs, doc)
	}

	if output == config.OutputJSON {
		return writeJSON(w, docs)
	}
	for _, doc := range docs {
		if err := writeNDJSONLine(w, doc); err != nil {
			return err
		}
	}
	return nil
}

// renderColumns prints an aligned table: first column left-aligned,
// the rest right-aligned, header bold on terminals.
func renderColumns(w io.Writer, headers []string, rows [][]string, styled bool) error {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	formatRow := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			if i == 0 {
				parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
			} else {
				parts[i] = fmt.Sprintf("%*s", widths[i], cell)
			}
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	header := formatRow(headers)
	if styled {
		header = headerStyle.Render(header)
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, formatRow(row)); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeNDJSONLine(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
