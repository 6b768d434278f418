package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/court-booker/internal/config"
)

func newPingCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the configured credentials can log in, without booking",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.v)
			if err != nil {
				return err
			}
			be, err := newBackend(cmd.Context(), cfg, opts.logger())
			if err != nil {
				return err
			}
			defer be.Close()

			if err := be.Authenticate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: logged in as %s (%s mode)\n", cfg.Credentials.Identifier, cfg.Mode)
			return nil
		},
	}
}
