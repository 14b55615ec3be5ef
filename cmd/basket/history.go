package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/the-basket-must-flow/internal/cli"
	"github.com/Veraticus/the-basket-must-flow/internal/config"
	"github.com/Veraticus/the-basket-must-flow/internal/storage"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent pipeline runs",
		Long: `Show the most recent pipeline runs recorded in the history database,
newest first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return withStore(cmd.Context(), func(store *storage.SQLiteStorage) error {
				return listRuns(cmd.Context(), store, limit, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().IntP("limit", "n", 20, "number of runs to show")
	cmd.AddCommand(historyShowCmd())

	return cmd
}

func historyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the summary of one run",
		Long: `Print the stored summary of a run as JSON. The run ID may be shortened
to any unambiguous prefix.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(store *storage.SQLiteStorage) error {
				return showRun(cmd.Context(), store, args[0], cmd.OutOrStdout())
			})
		},
	}
}

func withStore(ctx context.Context, fn func(*storage.SQLiteStorage) error) error {
	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	store, err := initStorage(ctx, settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(store)
}

func listRuns(ctx context.Context, store *storage.SQLiteStorage, limit int, out io.Writer) error {
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, cli.RenderHistory(runs))
	return err
}

func showRun(ctx context.Context, store *storage.SQLiteStorage, id string, out io.Writer) error {
	run, err := store.GetRun(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(out, run)
}
