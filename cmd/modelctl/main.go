package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/go-openapi/inflect"
	"github.com/spf13/cobra"

	"github.com/matthewbaird/modeleditor/internal/catalog"
	"github.com/matthewbaird/modeleditor/internal/config"
	"github.com/matthewbaird/modeleditor/internal/store"
)

func main() {
	if err := execute(nil); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func execute(args []string) error {
	cmd := newRootCmd()
	if args != nil {
		cmd.SetArgs(args)
	}
	return cmd.Execute()
}

// newRootCmd builds the modelctl command tree.
func newRootCmd() *cobra.Command {
	var dsn string
	root := &cobra.Command{
		Use:           "modelctl",
		Short:         "Validate, import and list data models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dsn, "db", defaultDSN(), "database DSN (env DATABASE_URL)")

	root.AddCommand(
		validateCmd(),
		importCmd(&dsn),
		listCmd(&dsn),
	)
	return root
}

func defaultDSN() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}
	return config.Default().DatabaseURL
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <catalog.cue>",
		Short: "Check a CUE catalog without touching the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := catalog.Load(args[0])
			if err != nil {
				return err
			}
			if err := catalog.Validate(models); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s\n", count(len(models), "model"))
			return nil
		},
	}
}

func importCmd(dsn *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <catalog.cue>",
		Short: "Save every model in a CUE catalog that is not stored yet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := catalog.Load(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			st, err := store.OpenSQLite(ctx, *dsn)
			if err != nil {
				return err
			}
			defer st.Close()

			saved, err := catalog.Import(ctx, st, models, nil)
			for _, m := range saved {
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s (%s)\n", m.Name, m.ID)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %s imported\n", len(saved), count(len(models), "model"))
			return nil
		},
	}
}

func listCmd(dsn *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := store.OpenSQLite(ctx, *dsn)
			if err != nil {
				return err
			}
			defer st.Close()

			models, err := st.ListModels(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tID\tFIELDS")
			for _, m := range models {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", m.Name, m.ID, len(m.Fields))
			}
			return tw.Flush()
		},
	}
}

// count renders n and word, pluralized unless n is 1.
func count(n int, word string) string {
	if n != 1 {
		word = inflect.Pluralize(word)
	}
	return fmt.Sprintf("%d %s", n, word)
}
