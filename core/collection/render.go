package collection

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

const (
	selectedMark   = "[x]"
	unselectedMark = "[ ]"
)

// RenderOptions tunes both renderers.
type RenderOptions struct {
	RowKey     string
	IsSelected func(id string) bool
	MaxWidth   int
}

func (o RenderOptions) mark(r Record) string {
	if o.IsSelected == nil {
		return ""
	}
	if o.IsSelected(r.ID(o.RowKey)) {
		return selectedMark
	}
	return unselectedMark
}

func (o RenderOptions) cell(c Column, r Record) string {
	s := strings.ReplaceAll(Stringify(c.Resolve(r)), "\n", " ")
	width := c.Width
	if width <= 0 {
		width = o.MaxWidth
	}
	if width > 3 && len([]rune(s)) > width {
		s = string([]rune(s)[:width-3]) + "..."
	}
	return s
}

func label(c Column) string {
	if c.Label != "" {
		return c.Label
	}
	return c.Name
}

func footer(w io.Writer, page Page) error {
	_, err := fmt.Fprintf(w, "page %d/%d (%d)\n", page.Page, page.MaxPage, page.Total)
	return err
}

// RenderRows writes page as an aligned table, one record per line.
func RenderRows(w io.Writer, page Page, cols []Column, opts RenderOptions) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	header := make([]string, 0, len(cols)+1)
	if opts.IsSelected != nil {
		header = append(header, "")
	}
	for _, c := range cols {
		header = append(header, strings.ToUpper(label(c)))
	}
	if _, err := fmt.Fprintln(tw, strings.Join(header, "\t")); err != nil {
		return err
	}

	for _, r := range page.Items {
		cells := make([]string, 0, len(cols)+1)
		if opts.IsSelected != nil {
			cells = append(cells, opts.mark(r))
		}
		for _, c := range cols {
			cells = append(cells, opts.cell(c, r))
		}
		if _, err := fmt.Fprintln(tw, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return footer(w, page)
}

// RenderCards writes page as one block per record: the first column is the card
// title and the others are listed as label/value pairs.
func RenderCards(w io.Writer, page Page, cols []Column, opts RenderOptions) error {
	for i, r := range page.Items {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if len(cols) == 0 {
			continue
		}

		title := opts.cell(cols[0], r)
		if m := opts.mark(r); m != "" {
			title = m + " " + title
		}
		if _, err := fmt.Fprintf(w, "%s\n%s\n", title, strings.Repeat("-", len([]rune(title)))); err != nil {
			return err
		}

		tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
		for _, c := range cols[1:] {
			v := opts.cell(c, r)
			if v == "" {
				continue
			}
			if _, err := fmt.Fprintf(tw, "  %s:\t%s\n", label(c), v); err != nil {
				return err
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	if len(page.Items) > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return footer(w, page)
}
