package main

import (
	"github.com/spf13/cobra"

	"github.com/cbegin/synthcore-go/internal/effects"
)

func newProcessorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "processors",
		Short: "List the registered user processors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range effects.DefaultRegistry.Names() {
				printInfo(cmd, "%s\n", name)
			}
			return nil
		},
	}
}
