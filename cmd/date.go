package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/court-booker/internal/booking"
)

func newDateCmd(opts *rootOpts) *cobra.Command {
	var days int

	c := &cobra.Command{
		Use:   "date",
		Short: "Print the date a run started now would book",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := opts.v
			v.SetDefault("DAYS_AHEAD", booking.DefaultDaysAhead)
			v.SetDefault("TIMEZONE", "America/New_York")
			v.AutomaticEnv()

			if days < 0 {
				n, err := strconv.Atoi(v.GetString("DAYS_AHEAD"))
				if err != nil || n < 0 {
					return fmt.Errorf("invalid DAYS_AHEAD %q", v.GetString("DAYS_AHEAD"))
				}
				days = n
			}
			loc, err := time.LoadLocation(v.GetString("TIMEZONE"))
			if err != nil {
				return fmt.Errorf("invalid TIMEZONE: %w", err)
			}

			now := time.Now().In(loc)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "submit:  %s\n", booking.ResolveDate(now, days, booking.LayoutSubmit))
			fmt.Fprintf(out, "display: %s\n", booking.ResolveDate(now, days, booking.LayoutDisplay))
			fmt.Fprintf(out, "input:   %s\n", booking.ResolveDate(now, days, booking.LayoutInput))
			return nil
		},
	}
	c.Flags().IntVar(&days, "days-ahead", -1, "override DAYS_AHEAD")
	return c
}
