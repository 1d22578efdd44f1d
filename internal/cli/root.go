// Package cli implements the offline deliverystats reports.
package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"deliverystats/internal/source"
	"deliverystats/internal/stats"
)

// App holds what the commands need to load events.
type App struct {
	// NewSource builds the event source for a run. file is the --file flag
	// and may be empty.
	NewSource func(file string) (source.Source, error)
	// MinDays is the default for forecast --min-days.
	MinDays int
}

type rootFlags struct {
	file string
}

// NewRootCmd creates the top-level "deliverystats" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "deliverystats",
		Short:         "Delivery-time statistics from an order event log",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.file, "file", "f", "", "read events from an .xlsx or .csv export instead of the configured source")

	root.AddCommand(
		newSummaryCmd(app, flags),
		newFastestCmd(app, flags),
		newOrdersCmd(app, flags),
		newShiftsCmd(app, flags),
		newForecastCmd(app, flags),
	)
	return root
}

func loadEvents(ctx context.Context, app *App, flags *rootFlags) ([]stats.RawEvent, error) {
	src, err := app.NewSource(flags.file)
	if err != nil {
		return nil, fmt.Errorf("opening event source: %w", err)
	}
	events, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading events: %w", err)
	}
	return events, nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}
