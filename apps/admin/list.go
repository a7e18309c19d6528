package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/trezcool/masomo-admin/apps"
)

type listOptions struct {
	search   string
	sort     string
	page     int
	pageSize int
	filters  []string
	cards    bool
	refresh  bool
}

func (cli *commandLine) listCmd() *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:   "list <screen>",
		Short: "Print one page of a screen",
		Long: `List fetches the records of a screen and prints the requested page.

Filters are given as field=value pairs; date ranges take field=from..to where
either bound may be left out.

Example:
  admin list eleves -u admin --sort -age --filter sexe=F
  admin list recrutements -u admin --filter dateCandidature=2024-09-01..2024-09-30`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.list(cmd, args[0], opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.search, "search", "s", "", "search term")
	f.StringVar(&opts.sort, "sort", "", "sort column, prefixed with - for descending order")
	f.IntVarP(&opts.page, "page", "p", 1, "page number")
	f.IntVar(&opts.pageSize, "page-size", 0, "rows per page (default: the screen's)")
	f.StringArrayVarP(&opts.filters, "filter", "f", nil, "field=value filter, repeatable")
	f.BoolVar(&opts.cards, "cards", false, "print one card per record")
	f.BoolVar(&opts.refresh, "refresh", false, "bypass the cache")
	return cmd
}

func (cli *commandLine) list(cmd *cobra.Command, name string, opts listOptions) error {
	scr, src, err := cli.screen(name)
	if err != nil {
		return err
	}
	v := newScreenView(scr, src)
	v.cards = opts.cards

	// filters first: server-side date filters shape the fetch
	for _, raw := range opts.filters {
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			return apps.NewArgumentError("invalid filter %q (expected field=value)", raw)
		}
		if err := v.setFilter(strings.TrimSpace(parts[0]), parts[1]); err != nil {
			return err
		}
	}
	if err := v.fetch(contextOf(cmd), opts.refresh); err != nil {
		return err
	}

	v.tbl.SetSearch(opts.search)
	if err := v.setSort(opts.sort); err != nil {
		return err
	}
	if opts.pageSize > 0 {
		v.tbl.SetPageSize(opts.pageSize)
	}
	v.tbl.SetPage(opts.page)

	return v.render(cmd.OutOrStdout(), false)
}
