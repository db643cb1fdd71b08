package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "classroom",
		Short:         "Live classroom synchronization: rooms, shared views and document scenes",
		Long:          "classroom runs the synchronization core of a live virtual classroom: it admits teachers and students into a shared room, keeps every follower's view on the teacher's camera and scene, turns documents into scenes, and serves the room over HTTP and websockets.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newSimulateCmd(app),
		newIngestCmd(app),
		newScenesCmd(app),
		newServeCmd(app),
	)

	return rootCmd
}
