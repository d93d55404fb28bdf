package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [id]",
		Short: "List recent translation requests, or show one with its stored parts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid id %q", args[0])
				}
				req, err := store.GetRequest(ctx, id)
				if err != nil {
					return err
				}
				parts, err := store.ListSegments(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Request %d (%s -> %s) from %s at %s\n", req.ID, req.InputLang, req.OutputLang,
					req.IPAddress, req.DateTime.Local().Format(time.RFC3339))
				fmt.Fprintf(out, "Input: %s\n", req.InputText)
				for _, p := range parts {
					fmt.Fprintf(out, "[%d] %s\n", p.Ordinal, p.OutputText)
				}
				return nil
			}

			reqs, err := store.ListRecentRequests(ctx, limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFROM\tTO\tWHEN\tTEXT")
			for _, r := range reqs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.InputLang, r.OutputLang,
					r.DateTime.Local().Format("2006-01-02 15:04"), r.InputText)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of requests to list")
	return cmd
}
