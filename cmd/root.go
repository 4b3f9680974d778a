// Package cmd implements the mcpagent command line interface.
package cmd

import (
	"net/http"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/mcpagent/mcpagent/client"
	"github.com/spf13/cobra"
)

const (
	ServerURLEnvVar  = "MCPAGENT_SERVER_URL"
	ServerURLDefault = "http://localhost:3001"

	// clientTimeout bounds a single CLI request; shell_execute itself may run for a while.
	clientTimeout = 5 * time.Minute
)

type subCommandGroup string

const (
	subCommandGroupBasic    subCommandGroup = "basic"
	subCommandGroupAdvanced subCommandGroup = "advanced"
)

var serverURL string

// apiClient is created once the global flags are parsed.
var apiClient *client.Client

var rootCmd = &cobra.Command{
	Use:   "mcpagent",
	Short: "Remote execution agent for filesystem, shell and system tools",
	Long: "mcpagent runs an agent that exposes filesystem, shell and system tools over HTTP,\n" +
		"WebSocket and the Model Context Protocol, and talks to a running agent from the command line.\n" +
		"Every path is checked against the allowed roots before it is touched.",

	SilenceUsage: true,

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		apiClient = client.NewClient(resolveServerURL(), "", &http.Client{Timeout: clientTimeout})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&serverURL,
		"server-url",
		"",
		"URL of the mcpagent server (overrides env var "+ServerURLEnvVar+", default "+ServerURLDefault+")",
	)

	rootCmd.AddGroup(
		&cobra.Group{ID: string(subCommandGroupBasic), Title: "Basic Commands:"},
		&cobra.Group{ID: string(subCommandGroupAdvanced), Title: "Advanced Commands:"},
	)
}

// resolveServerURL returns the URL of the server the CLI talks to
// precedence: command line flag > environment variable > default
func resolveServerURL() string {
	u := serverURL
	if u == "" {
		u = os.Getenv(ServerURLEnvVar)
	}
	if u == "" {
		u = ServerURLDefault
	}
	return u
}

// arrangeCommands places every subcommand in the help group named by its "group" annotation,
// ordered by its "order" annotation.
func arrangeCommands(root *cobra.Command) {
	cmds := slices.Clone(root.Commands())
	slices.SortStableFunc(cmds, func(a, b *cobra.Command) int {
		return commandOrder(a) - commandOrder(b)
	})

	root.RemoveCommand(cmds...)
	for _, c := range cmds {
		if g, ok := c.Annotations["group"]; ok && root.ContainsGroup(g) {
			c.GroupID = g
		}
	}
	root.AddCommand(cmds...)
}

func commandOrder(c *cobra.Command) int {
	n, err := strconv.Atoi(c.Annotations["order"])
	if err != nil {
		return 1 << 16
	}
	return n
}

// Execute runs the root command.
func Execute() error {
	cobra.EnableCommandSorting = false
	arrangeCommands(rootCmd)
	return rootCmd.Execute()
}
