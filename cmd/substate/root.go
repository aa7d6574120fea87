package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wasmflow/substate/host"
)

type rootOptions struct {
	Verbose bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "substate",
		Short: "Run and inspect substate wasm modules",
		Long: `substate is a developer tool for module packages. It executes map and
store handlers against a local payload and shows their outputs and
state deltas, and it inspects the exports of packaged wasm binaries.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Verbose {
				log, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				host.SetLogger(log)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newInspectCommand(opts))

	return cmd
}
