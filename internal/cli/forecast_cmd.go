package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"deliverystats/internal/forecast"
)

func newForecastCmd(app *App, flags *rootFlags) *cobra.Command {
	var (
		regions, menus, buckets []string
		from, to                string
		minDays                 int
	)
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Next-day order count per region, menu and shift",
		RunE: func(cmd *cobra.Command, args []string) error {
			want, err := parseBuckets(buckets)
			if err != nil {
				return err
			}
			if minDays <= 0 {
				minDays = forecast.DefaultMinDays
			}
			opts := forecast.Options{MinDays: minDays, Regions: regions, Menus: menus, Buckets: want}
			if from != "" {
				if opts.From, err = time.Parse("2006-01-02", from); err != nil {
					return fmt.Errorf("invalid --from: %w", err)
				}
			}
			if to != "" {
				if opts.To, err = time.Parse("2006-01-02", to); err != nil {
					return fmt.Errorf("invalid --to: %w", err)
				}
			}

			events, err := loadEvents(cmd.Context(), app, flags)
			if err != nil {
				return err
			}
			series := forecast.Build(events, opts)
			if len(series) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No series with at least %d days of orders.\n", opts.MinDays)
				return nil
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "REGION\tMENU\tSHIFT\tDAYS\tR2\tNEXT DATE\tPREDICTED")
			for _, s := range series {
				r2 := fmt.Sprintf("%.3f", s.Model.R2)
				if s.Model.Degenerate {
					r2 += " (mean)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%.2f\n",
					s.Region, s.Menu, s.Bucket, len(s.Points), r2, s.NextDate, s.NextPrediction)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringSliceVar(&regions, "region", nil, "regions to include")
	cmd.Flags().StringSliceVar(&menus, "menu", nil, "menus to include")
	cmd.Flags().StringSliceVar(&buckets, "bucket", nil, "shifts to include (lunch, dinner)")
	cmd.Flags().StringVar(&from, "from", "", "first business date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last business date, YYYY-MM-DD")
	cmd.Flags().IntVar(&minDays, "min-days", app.MinDays, "fewest observed days a series needs")
	return cmd
}
