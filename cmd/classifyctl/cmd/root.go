package cmd

import (
	"github.com/deepserve/image-classifier-api/pkg/config"
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "classifyctl",
	Short: "Operator CLI for the image classifier API",
	Long:  "Inspect trained snapshots, print the training parameter schema and sync the model directory with remote storage.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return config.InitConfig(configFile)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config.yaml", "config file path")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(paramsCmd)
	rootCmd.AddCommand(syncCmd)
}
