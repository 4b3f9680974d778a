package cmd

import (
	"github.com/mcpagent/mcpagent/pkg/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of the CLI and of the server, if it is reachable",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
	Annotations: map[string]string{
		"group": string(subCommandGroupAdvanced),
		"order": "1",
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	cmd.Printf("CLI version:    %s\n", version.GetVersion())

	health, err := apiClient.Health()
	if err != nil {
		cmd.Printf("Server version: unavailable (%s is not reachable)\n", apiClient.BaseURL())
		return nil
	}
	cmd.Printf("Server version: %s (%s/%s, %d tools)\n", health.Version, health.Platform, health.Arch, health.Tools)
	return nil
}
