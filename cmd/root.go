package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

type rootOpts struct {
	cfgFile string
	quiet   bool
	v       *viper.Viper
}

func (o *rootOpts) logger() *log.Logger {
	if o.quiet {
		return log.New(io.Discard, "", 0)
	}
	return log.New(os.Stderr, "", log.LstdFlags)
}

func NewRootCmd() *cobra.Command {
	opts := &rootOpts{v: viper.New()}
	root := &cobra.Command{
		Use:           "courtbook",
		Short:         "Books a facility court a fixed number of days ahead, falling back across courts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.cfgFile == "" {
				return nil
			}
			opts.v.SetConfigFile(opts.cfgFile)
			if err := opts.v.ReadInConfig(); err != nil {
				return fmt.Errorf("read config %s: %w", opts.cfgFile, err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (yaml, toml or json); environment variables take precedence")
	root.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "discard progress logs")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newBookCmd(opts))
	root.AddCommand(newPingCmd(opts))
	root.AddCommand(newDateCmd(opts))

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
