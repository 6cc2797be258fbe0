// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"fmt"
	"slices"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"studiosite/internal/store"
)

func (a *app) visitorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visitors",
		Short: "Inspect the rolling visitor log",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent visits, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer res.Close()

			records := store.NewVisitorLog(res.kv, a.cfg.VisitorLogCap).List(cmd.Context())
			slices.Reverse(records)
			if limit > 0 && len(records) > limit {
				records = records[:limit]
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tSESSION\tPAGE\tDEVICE\tBROWSER\tOS\tLOCATION\tTIME ON SITE")
			for _, rec := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					humanize.Time(rec.Timestamp),
					shortID(rec.SessionID),
					rec.Page, rec.Device, rec.Browser, rec.OS,
					orDash(rec.Location),
					time.Duration(rec.TimeOnSite)*time.Second,
				)
			}
			return w.Flush()
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of visits to show (0 for all)")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the visitor log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer res.Close()

			st := store.NewVisitorLog(res.kv, a.cfg.VisitorLogCap).Stats(cmd.Context())
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Visits\t%d\n", st.Total)
			fmt.Fprintf(w, "Sessions\t%d\n", st.UniqueSessions)
			fmt.Fprintf(w, "Average time on site\t%s\n", (time.Duration(st.AverageTimeOnSite) * time.Second).Round(time.Second))
			writeCounts(w, "Devices", st.Devices)
			writeCounts(w, "Browsers", st.Browsers)
			writeCounts(w, "Operating systems", st.OperatingSystems)
			writeCounts(w, "Pages", st.Pages)
			return w.Flush()
		},
	}

	cmd.AddCommand(list, stats)
	return cmd
}

// writeCounts prints a breakdown, largest first.
func writeCounts(w *tabwriter.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	fmt.Fprintf(w, "%s\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s\t%d\n", k, counts[k])
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
