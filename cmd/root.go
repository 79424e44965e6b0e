package cmd

import (
	"github.com/spf13/cobra"
)

// New creates the root command with all subcommands registered.
func New() *cobra.Command {
	opts := NewOptions()

	rootCmd := &cobra.Command{
		Use:   "devpulse",
		Short: "Engineering activity metrics from GitHub, Jira and Confluence",
		Long: `Computes per-engineer activity summaries over a date window from
GitHub, Jira and Confluence. Run the summaries from the command line or
serve them as MCP tools with 'devpulse serve'.

Credentials come from the environment (or a .env file):
  GITHUB_TOKEN
  JIRA_BASE_URL, JIRA_EMAIL, JIRA_API_TOKEN (or JIRA_BEARER_TOKEN)
  CONFLUENCE_BASE_URL, CONFLUENCE_EMAIL, CONFLUENCE_API_TOKEN`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	// Register subcommands
	rootCmd.AddCommand(NewCmdGitHub(opts))
	rootCmd.AddCommand(NewCmdJira(opts))
	rootCmd.AddCommand(NewCmdConfluence(opts))
	rootCmd.AddCommand(NewCmdServe())
	rootCmd.AddCommand(NewCmdConfig())
	rootCmd.AddCommand(NewCmdVersion())
	rootCmd.AddCommand(NewCmdRateLimit())

	return rootCmd
}
