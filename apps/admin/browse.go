package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/masomo-admin/apps"
	"github.com/trezcool/masomo-admin/core/collection"
)

const browseHelp = `Commands:
  search [term]            search the screen (no term clears it)
  filter <field> [value]   set a filter, from..to for date ranges (no value clears it)
  clear                    drop the search and every filter
  sort [column|-column]    sort by a column (no column restores the order)
  page <n> | next | prev   move between pages
  size <n>                 rows per page
  select <id>...           toggle the selection of rows
  selectpage               select the visible rows
  deselectpage             deselect the visible rows
  deselectall              empty the selection
  selected                 print the selected ids
  view <id>                print every field of a row
  delete [id...]           delete rows, the selection by default
  refresh                  reload, bypassing the cache
  rows | cards             switch the layout
  help                     print this help
  quit                     leave`

var errQuit = errors.New("quit")

func (cli *commandLine) browseCmd() *cobra.Command {
	var cards bool
	cmd := &cobra.Command{
		Use:   "browse <screen>",
		Short: "Browse a screen interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scr, src, err := cli.screen(args[0])
			if err != nil {
				return err
			}
			v := newScreenView(scr, src)
			v.cards = cards
			b := &browser{
				view: v,
				in:   bufio.NewScanner(cmd.InOrStdin()),
				out:  cmd.OutOrStdout(),
			}
			return b.run(contextOf(cmd))
		},
	}
	cmd.Flags().BoolVar(&cards, "cards", false, "start with one card per record")
	return cmd
}

// browser is the read-eval-print loop over one screen.
type browser struct {
	view *screenView
	in   *bufio.Scanner
	out  io.Writer
}

func (b *browser) run(ctx context.Context) error {
	if err := b.view.fetch(ctx, false); err != nil {
		return err
	}
	if err := b.show(); err != nil {
		return err
	}

	for {
		fmt.Fprint(b.out, "> ")
		if !b.in.Scan() {
			fmt.Fprintln(b.out)
			return b.in.Err()
		}
		fields := strings.Fields(b.in.Text())
		if len(fields) == 0 {
			continue
		}

		render, err := b.exec(ctx, fields[0], fields[1:])
		switch {
		case err == errQuit:
			return nil
		case err != nil:
			var argErr *apps.ArgumentError
			if !errors.As(err, &argErr) {
				// remote failures are reported and the loop goes on
				fmt.Fprintf(b.out, "error: %v\n", err)
				continue
			}
			fmt.Fprintln(b.out, argErr.Error())
			continue
		}
		if render {
			if err := b.show(); err != nil {
				return err
			}
		}
	}
}

func (b *browser) show() error {
	fmt.Fprintf(b.out, "%s [%s]\n", b.view.scr.Title, b.view.source)
	return b.view.render(b.out, true)
}

// exec runs one command and reports whether the view must be printed again.
func (b *browser) exec(ctx context.Context, name string, args []string) (bool, error) {
	v, tbl := b.view, b.view.tbl

	switch name {
	case "quit", "exit", "q":
		return false, errQuit
	case "help", "?":
		fmt.Fprintln(b.out, browseHelp)
		return false, nil
	case "search":
		tbl.SetSearch(strings.Join(args, " "))
	case "filter":
		if len(args) == 0 {
			return false, apps.NewArgumentError("usage: filter <field> [value]")
		}
		if err := v.setFilter(args[0], strings.Join(args[1:], " ")); err != nil {
			return false, err
		}
		if err := v.refetchDates(ctx); err != nil {
			return false, err
		}
	case "clear":
		tbl.ClearFilters()
		v.setBounds(collection.DateBounds{})
		if err := v.refetchDates(ctx); err != nil {
			return false, err
		}
	case "sort":
		ordering := ""
		if len(args) > 0 {
			ordering = args[0]
		}
		if err := v.setSort(ordering); err != nil {
			return false, err
		}
	case "page":
		n, err := intArg(args)
		if err != nil {
			return false, err
		}
		tbl.SetPage(n)
	case "next", "n":
		tbl.SetPage(tbl.State().Page + 1)
	case "prev", "p":
		tbl.SetPage(tbl.State().Page - 1)
	case "size":
		n, err := intArg(args)
		if err != nil {
			return false, err
		}
		tbl.SetPageSize(n)
	case "select":
		if len(args) == 0 {
			return false, apps.NewArgumentError("usage: select <id>...")
		}
		for _, id := range args {
			if _, ok := tbl.Record(id); !ok {
				return false, apps.NewArgumentError("no row with id %s", id)
			}
			tbl.Toggle(id)
		}
	case "selectpage":
		tbl.SelectPage()
	case "deselectpage":
		tbl.DeselectPage()
	case "deselectall":
		tbl.DeselectAll()
	case "selected":
		fmt.Fprintf(b.out, "selected: %s\n", strings.Join(tbl.Selected(), ", "))
		return false, nil
	case "view":
		if len(args) != 1 {
			return false, apps.NewArgumentError("usage: view <id>")
		}
		rec, ok := tbl.Record(args[0])
		if !ok {
			return false, apps.NewArgumentError("no row with id %s", args[0])
		}
		return false, collection.Dispatch(tbl.Config(), collection.ActionView, rec, func(_ collection.ActionSpec, r collection.Record) error {
			return printRecord(b.out, r)
		})
	case "delete":
		return true, b.delete(ctx, args)
	case "refresh":
		if err := v.fetch(ctx, true); err != nil {
			return false, err
		}
	case "rows":
		v.cards = false
	case "cards":
		v.cards = true
	default:
		return false, apps.NewArgumentError("unknown command %q, type help", name)
	}
	return true, nil
}

func (b *browser) delete(ctx context.Context, ids []string) error {
	tbl := b.view.tbl
	cfg := tbl.Config()

	action, ok := cfg.Action(collection.ActionDelete)
	if !ok {
		return apps.NewArgumentError("rows of this screen cannot be deleted")
	}

	var records []collection.Record
	if len(ids) == 0 {
		records = tbl.SelectedRecords()
	} else {
		for _, id := range ids {
			rec, ok := tbl.Record(id)
			if !ok {
				return apps.NewArgumentError("no row with id %s", id)
			}
			records = append(records, rec)
		}
	}
	if len(records) == 0 {
		return apps.NewArgumentError("nothing to delete, select rows first")
	}

	if action.Confirm && !b.confirm(fmt.Sprintf("Delete %d record(s)? [y/N] ", len(records))) {
		fmt.Fprintln(b.out, "cancelled")
		return nil
	}

	var deleted []string
	for _, rec := range records {
		err := collection.Dispatch(cfg, collection.ActionDelete, rec, func(_ collection.ActionSpec, r collection.Record) error {
			id, err := strconv.Atoi(r.ID(cfg.RowKey))
			if err != nil {
				return errors.Wrapf(err, "invalid id %q", r.ID(cfg.RowKey))
			}
			return b.view.src.Delete(ctx, id)
		})
		if err != nil {
			fmt.Fprintf(b.out, "deleted %d record(s)\n", len(deleted))
			return err
		}
		deleted = append(deleted, rec.ID(cfg.RowKey))
	}
	tbl.Deselect(deleted...)
	fmt.Fprintf(b.out, "deleted %d record(s)\n", len(deleted))
	return b.view.fetch(ctx, true)
}

func (b *browser) confirm(prompt string) bool {
	fmt.Fprint(b.out, prompt)
	if !b.in.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(b.in.Text()))
	return answer == "y" || answer == "yes" || answer == "o" || answer == "oui"
}

func intArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, apps.NewArgumentError("a number is required")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, apps.NewArgumentError("%q is not a number", args[0])
	}
	return n, nil
}

func printRecord(w io.Writer, r collection.Record) error {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	for _, k := range keys {
		if s := collection.Stringify(r[k]); s != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", k, s)
		}
	}
	return tw.Flush()
}
