package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"deliverystats/internal/stats"
)

func newSummaryCmd(app *App, flags *rootFlags) *cobra.Command {
	var buckets []string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Per date and shift delivery table with headline figures",
		RunE: func(cmd *cobra.Command, args []string) error {
			want, err := parseBuckets(buckets)
			if err != nil {
				return err
			}
			events, err := loadEvents(cmd.Context(), app, flags)
			if err != nil {
				return err
			}
			rows := stats.FilterBuckets(stats.Compute(events), want)

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "DATE\tSHIFT\tORDERS\t<=10MIN\t>30MIN\tAVG\tMIN\tMAX\t<=10MIN%\t>30MIN%")
			for _, r := range rows {
				avg, lo, hi := "-", "-", "-"
				if r.HasElapsed {
					avg, lo, hi = stats.FormatMinutes(r.AvgMinutes), stats.FormatMinutes(r.MinMinutes), stats.FormatMinutes(r.MaxMinutes)
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%s\t%s\t%.2f\t%.2f\n",
					r.DateTag, r.Bucket, r.TotalOrders, r.UnderFastOrders, r.OverSlowOrders,
					avg, lo, hi, r.UnderFastRatio, r.OverSlowRatio)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			s := stats.Summarize(rows)
			fmt.Fprintf(cmd.OutOrStdout(), "\nTotal orders: %d  Within 10 min: %.2f%%  Over 30 min: %.2f%%  Average: %s\n",
				s.TotalOrders, s.MeanUnderFastRatio, s.MeanOverSlowRatio, s.MeanAvgDisplay)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&buckets, "bucket", nil, "shifts to include (lunch, dinner)")
	return cmd
}

func newFastestCmd(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "fastest",
		Short: "Quickest delivery of each day",
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := loadEvents(cmd.Context(), app, flags)
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "DATE\tFASTEST")
			for _, d := range stats.FastestPerDay(stats.Records(events)) {
				fmt.Fprintf(tw, "%s\t%s\n", d.DateTag, d.Display)
			}
			return tw.Flush()
		},
	}
}

func newOrdersCmd(app *App, flags *rootFlags) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Orders of one day, quickest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := loadEvents(cmd.Context(), app, flags)
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ORDER\tSHIFT\tDELIVERY")
			for _, o := range stats.OrderDetails(stats.Records(events), stats.NormalizeDateTag(date)) {
				took := "-"
				if o.Minutes != nil {
					took = stats.FormatMinutes(*o.Minutes)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", o.OrderID, o.Bucket, took)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "business date, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newShiftsCmd(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "shifts",
		Short: "Rider working time per shift",
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := loadEvents(cmd.Context(), app, flags)
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "RIDER\tDATE\tSHIFT\tFIRST ORDER\tLAST DELIVERY\tMINUTES")
			for _, s := range stats.ShiftDurations(events) {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", s.Rider, s.DateTag, s.Bucket,
					s.FirstAccepted.Format("15:04:05"), s.LastCompleted.Format("15:04:05"), strconv.Itoa(s.Minutes))
			}
			return tw.Flush()
		},
	}
}

func parseBuckets(names []string) ([]stats.Bucket, error) {
	out := make([]stats.Bucket, 0, len(names))
	for _, n := range names {
		b, ok := stats.ParseBucket(n)
		if !ok {
			return nil, fmt.Errorf("unknown bucket %q", n)
		}
		out = append(out, b)
	}
	return out, nil
}
