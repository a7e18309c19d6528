package main

import (
	"context"
	"fmt"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/masomo-admin/apps"
	"github.com/trezcool/masomo-admin/apps/shared"
	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/screen"
	"github.com/trezcool/masomo-admin/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errNotAdmin = errors.New("this account cannot use the admin dashboard")
)

type commandLine struct {
	svcs     *shared.Services
	sources  map[string]shared.Source
	logger   core.Logger
	username string
	session  user.Session
}

func newCommandLine(svcs *shared.Services, logger core.Logger) *commandLine {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &commandLine{svcs: svcs, sources: svcs.Sources(), logger: logger}
}

// root builds the command tree; every command but screens signs the operator in first.
func (cli *commandLine) root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "admin",
		Short:         "Masomo school administration",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "screens" || cmd.Name() == "help" {
				return nil
			}
			return cli.login(cmd)
		},
	}
	cmd.PersistentFlags().StringVarP(&cli.username, "username", "u", "", "username or email of an admin account; the password is prompted")

	cmd.AddCommand(
		cli.loginCmd(),
		cli.screensCmd(),
		cli.listCmd(),
		cli.browseCmd(),
	)
	return cmd
}

func (cli *commandLine) login(cmd *cobra.Command) error {
	if cli.session.Token != "" {
		return nil
	}
	if strings.TrimSpace(cli.username) == "" {
		return apps.NewArgumentError("--username is required")
	}

	fmt.Fprint(cmd.OutOrStdout(), "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if len(pwd) == 0 {
		return apps.NewArgumentError("a password is required")
	}

	s, err := cli.svcs.Users.Login(contextOf(cmd), user.Credentials{Username: cli.username, Password: string(pwd)})
	if err != nil {
		return err
	}
	if !s.User.IsAdmin() || !s.User.IsActive {
		return errNotAdmin
	}
	cli.session = s
	cli.logger.Info(fmt.Sprintf("%s signed in", s.User.Username), s.User.Person())
	return nil
}

func (cli *commandLine) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Check the credentials of an admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", cli.session.User.Name, cli.session.User.Username)
			return nil
		},
	}
}

func (cli *commandLine) screensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "screens",
		Short: "List the available screens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTITLE\tENTITY")
			for _, scr := range cli.svcs.Screens.All() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", scr.Name, scr.Title, scr.Entity)
			}
			return tw.Flush()
		},
	}
}

// screen resolves a screen by name together with the source of its entity.
func (cli *commandLine) screen(name string) (screen.Screen, shared.Source, error) {
	scr, ok := cli.svcs.Screens.Get(name)
	if !ok {
		return screen.Screen{}, shared.Source{}, apps.NewArgumentError("unknown screen %q (valid: %s)", name, strings.Join(cli.svcs.Screens.Names(), ", "))
	}
	src, ok := cli.sources[scr.Entity]
	if !ok {
		return screen.Screen{}, shared.Source{}, apps.NewArgumentError("screen %q has no data source", name)
	}
	return scr, src, nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
