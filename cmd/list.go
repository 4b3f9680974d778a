package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tools offered by the agent",
	Args:  cobra.NoArgs,
	RunE:  runListTools,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "2",
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runListTools(cmd *cobra.Command, args []string) error {
	tools, err := apiClient.ListTools()
	if err != nil {
		return fmt.Errorf("failed to list tools: %w", err)
	}
	if len(tools) == 0 {
		cmd.Println("There are no tools available")
		return nil
	}

	for i, t := range tools {
		marker := ""
		if t.Dangerous {
			marker = " [dangerous]"
		}
		cmd.Printf("%d. %s%s\n", i+1, t.Name, marker)
		cmd.Printf("   %s\n", t.Description)
	}
	cmd.Println()
	cmd.Println("Run 'usage <tool name>' to see a tool's parameters.")
	return nil
}
