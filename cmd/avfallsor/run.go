package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bher20/avfallsor-mqtt/internal/calendar"
	"github.com/bher20/avfallsor-mqtt/internal/config"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Look up the schedule once and publish it to MQTT",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if err := cfg.Validate(true); err != nil {
				return err
			}
			provider, p, err := newPipeline(cfg)
			if err != nil {
				return err
			}
			st, err := openStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			_, err = newJob(cfg, provider, p, st).Run(cmd.Context())
			return err
		},
	}
}

func newLookupCmd() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Print the calendar URL and next pickups without publishing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if address != "" {
				cfg.Address = address
			}
			if err := cfg.Validate(false); err != nil {
				return err
			}
			_, p, err := newPipeline(cfg)
			if err != nil {
				return err
			}

			ref := calendar.Today()
			href, assocs, err := p.Calendar(cmd.Context(), cfg.Address, ref)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Calendar: %s\n\n", href)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, a := range assocs {
				fmt.Fprintf(tw, "%s\t%v\n", a.Date, a.Types)
			}
			_ = tw.Flush()

			sched := calendar.NextPickups(assocs, ref)
			fmt.Fprintf(out, "\nNext pickups from %s:\n", ref)
			for _, t := range sched.Types() {
				fmt.Fprintf(out, "  %s: %s\n", t, sched[t])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "address to look up (defaults to $ADDRESS)")
	return cmd
}
