package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"status-relay/src/contracts"
	"status-relay/src/gitlab"
	"status-relay/src/logger"
	"status-relay/src/pipeline"
	"status-relay/src/relay"
	"status-relay/src/tui"
)

var (
	listFilter contracts.DeliveryFilter
	listWatch  bool
	listJSON   bool
)

var deliveriesCmd = &cobra.Command{
	Use:   "deliveries",
	Short: "List recorded commit status deliveries",
	Long: `List the delivery log, newest first. Requires DATABASE_URL.

Use --watch to open an auto-refreshing terminal view (q quits, r refreshes).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Keep log lines out of the TUI.
		var storeLog logger.Logger = log
		if listWatch {
			storeLog = logger.NewSilentLogger()
		}
		st, err := requirePersistentStore(ctx, appConfig, storeLog)
		if err != nil {
			return err
		}
		defer st.Close()

		filter := listFilter
		if listWatch {
			return tui.Run(func(ctx context.Context) ([]contracts.Delivery, error) {
				return st.ListDeliveries(ctx, filter)
			}, tui.DefaultRefreshInterval)
		}

		deliveries, err := st.ListDeliveries(ctx, filter)
		if err != nil {
			return err
		}

		if listJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(deliveries)
		}
		printDeliveries(cmd.OutOrStdout(), deliveries)
		return nil
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay <delivery-id>",
	Short: "Forward a recorded delivery's request again",
	Long: `Re-send the status request of a delivery from the log, typically a failed one,
and record the result as a new delivery. Requires DATABASE_URL, REST_API and TOKEN.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := appConfig.RequireForwarding(); err != nil {
			return err
		}

		st, err := requirePersistentStore(ctx, appConfig, log)
		if err != nil {
			return err
		}
		defer st.Close()

		delivery, err := relay.New(pipeline.NewClient(appConfig), pipeline.NewResolver(appConfig), st, nil, log).
			Replay(ctx, args[0])
		if delivery != nil {
			printDeliveries(cmd.OutOrStdout(), []contracts.Delivery{*delivery})
		}
		if err != nil {
			return gitlab.WrapError(err)
		}
		return nil
	},
}

func init() {
	deliveriesCmd.Flags().StringVar(&listFilter.RepoID, "repo", "", "only this repository")
	deliveriesCmd.Flags().StringVar(&listFilter.Commit, "commit", "", "only this commit")
	deliveriesCmd.Flags().StringVar(&listFilter.Outcome, "outcome", "", "delivered, ignored or failed")
	deliveriesCmd.Flags().IntVar(&listFilter.Limit, "limit", 20, "max deliveries")
	deliveriesCmd.Flags().BoolVar(&listWatch, "watch", false, "open the auto-refreshing terminal view")
	deliveriesCmd.Flags().BoolVar(&listJSON, "json", false, "print JSON")
}

func printDeliveries(w io.Writer, deliveries []contracts.Delivery) {
	if len(deliveries) == 0 {
		fmt.Fprintln(w, "No deliveries found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tREPO\tCOMMIT\tBUILD\tSTATE\tOUTCOME\tHTTP\tDETAIL")
	for _, d := range deliveries {
		detail := d.Descriptor.Description
		if d.Error != "" {
			detail = d.Error
		}
		state := d.Descriptor.State
		if state == "" {
			state = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d %s\t%s\t%s\t%d\t%s\n",
			d.ID,
			d.CreatedAt.Local().Format(time.DateTime),
			d.Request.Routing.RepoID,
			tui.ShortSHA(d.Request.Build.Commit),
			d.Request.Build.Number, d.Request.Build.Status,
			state,
			d.Outcome,
			d.StatusCode,
			tui.Cell(detail, 60),
		)
	}
	tw.Flush()
}
