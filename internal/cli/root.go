package cli

import (
	"github.com/spf13/cobra"
)

func Execute() error {
	return NewRoot().Execute()
}

func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:          "silentwave",
		Short:        "Home Front Command alert monitor",
		SilenceUsage: true,
	}
	root.AddCommand(
		ServeCmd(),
		WatchCmd(),
		MockCmd(),
	)
	return root
}
