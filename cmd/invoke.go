package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var invokeCmdInput string

var invokeCmd = &cobra.Command{
	Use:   "invoke <name>",
	Short: "Invoke a tool on the agent",
	Long: "Invokes a tool on the agent and prints its result as JSON.\n" +
		"Parameters are passed as a JSON object, eg:\n" +
		"mcpagent invoke filesystem_read_file --input '{\"path\": \"/tmp/notes.txt\"}'",
	Args: cobra.ExactArgs(1),
	RunE: runInvokeTool,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "4",
	},
}

func init() {
	invokeCmd.Flags().StringVar(&invokeCmdInput, "input", "{}", "valid JSON object of tool parameters")
	rootCmd.AddCommand(invokeCmd)
}

func runInvokeTool(cmd *cobra.Command, args []string) error {
	params, err := parseToolInput(invokeCmdInput)
	if err != nil {
		return err
	}

	result, err := apiClient.Execute(args[0], params)
	if err != nil {
		return fmt.Errorf("failed to invoke tool: %w", err)
	}

	out, err := json.MarshalIndent(result.Fields, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format tool result: %w", err)
	}
	cmd.Println(string(out))

	if !result.Success {
		return fmt.Errorf("tool %s failed: %s", args[0], result.Error)
	}
	return nil
}

// parseToolInput decodes the --input flag. The input must be a JSON object.
func parseToolInput(input string) (map[string]any, error) {
	var params map[string]any
	if err := json.Unmarshal([]byte(input), &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if params == nil {
		params = map[string]any{}
	}
	return params, nil
}
