// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"studiosite/internal/models"
	"studiosite/internal/store"
)

func (a *app) portfolioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Inspect and manage portfolio items",
	}

	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List portfolio items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPortfolio(cmd.Context(), func(ctx context.Context, s *store.PortfolioStore) error {
				if status != "" && !models.PortfolioStatus(status).Valid() {
					return fmt.Errorf("%w: %q", models.ErrInvalidStatus, status)
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tSTATUS\tCATEGORY\tVIEWS\tCREATED\tTITLE")
				for _, item := range s.List(ctx) {
					if status != "" && string(item.Status) != status {
						continue
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
						item.ID, item.Status, item.Category,
						humanize.Comma(int64(item.Views)),
						humanize.Time(item.CreatedAt),
						item.Title,
					)
				}
				return w.Flush()
			})
		},
	}
	list.Flags().StringVar(&status, "status", "", "only show items with this status (active, inactive, draft)")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show portfolio statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPortfolio(cmd.Context(), func(ctx context.Context, s *store.PortfolioStore) error {
				st := s.Statistics(ctx)
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "Total\t%d\n", st.Total)
				fmt.Fprintf(w, "Active\t%d\n", st.Active)
				fmt.Fprintf(w, "Inactive\t%d\n", st.Inactive)
				fmt.Fprintf(w, "Draft\t%d\n", st.Draft)
				fmt.Fprintf(w, "Views\t%s\n", humanize.Comma(int64(st.TotalViews)))

				names := make([]string, 0, len(st.Categories))
				for name := range st.Categories {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(w, "  %s\t%d\n", name, st.Categories[name])
				}
				return w.Flush()
			})
		},
	}

	importCmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Add portfolio items from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}
			items, err := store.ParsePortfolioYAML(data)
			if err != nil {
				return err
			}
			return a.withPortfolio(cmd.Context(), func(ctx context.Context, s *store.PortfolioStore) error {
				n, err := store.ImportPortfolio(ctx, s, items)
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d items\n", n, len(items))
				return err
			})
		},
	}

	var out string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write portfolio items as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPortfolio(cmd.Context(), func(ctx context.Context, s *store.PortfolioStore) error {
				data, err := store.ExportPortfolioYAML(s.List(ctx))
				if err != nil {
					return err
				}
				if out == "" {
					_, err := cmd.OutOrStdout().Write(data)
					return err
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return fmt.Errorf("write export file: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%s)\n", out, humanize.Bytes(uint64(len(data))))
				return nil
			})
		},
	}
	export.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")

	cmd.AddCommand(list, stats, importCmd, export)
	return cmd
}

func (a *app) withPortfolio(ctx context.Context, fn func(context.Context, *store.PortfolioStore) error) error {
	res, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer res.Close()
	return fn(ctx, store.NewPortfolioStore(res.kv))
}
