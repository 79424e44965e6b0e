package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	gh "github.com/google/go-github/v57/github"
	"github.com/spf13/cobra"

	"github.com/spiffcs/devpulse/internal/constants"
	"github.com/spiffcs/devpulse/internal/ghclient"
)

// NewCmdRateLimit creates the ratelimit command.
func NewCmdRateLimit() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Check GitHub API rate limit status",
		Long: `Display current GitHub API rate limit status including remaining quota and reset time.
Search quota is what the github command spends first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRateLimitStatus(cmd, envFile)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "Load credentials from this file when it exists")
	return cmd
}

func runRateLimitStatus(cmd *cobra.Command, envFile string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	env, err := loadEnvironment(envFile)
	if err != nil {
		return err
	}
	if err := env.creds.Require(constants.IntegrationGitHub); err != nil {
		return err
	}

	client, err := ghclient.NewClient(ctx, ghclient.Options{
		Token:   env.creds.GitHubToken,
		BaseURL: env.creds.GitHubAPIURL,
		Timeout: env.cfg.GetFetchSettings().Timeout,
	})
	if err != nil {
		return err
	}

	limits, err := client.RateLimits(ctx)
	if err != nil {
		return err
	}

	printRateLimits(cmd.OutOrStdout(), limits, time.Now())
	return nil
}

func printRateLimits(w io.Writer, limits *gh.RateLimits, now time.Time) {
	fmt.Fprintln(w, "GitHub API Rate Limits:")
	fmt.Fprintln(w)

	for _, row := range []struct {
		name string
		rate *gh.Rate
	}{
		{"Core API:  ", limits.Core},
		{"Search API:", limits.Search},
		{"GraphQL:   ", limits.GraphQL},
	} {
		if row.rate == nil {
			continue
		}
		resetIn := max(row.rate.Reset.Time.Sub(now).Round(time.Second), 0)
		fmt.Fprintf(w, "%s %d/%d remaining (resets in %s)\n",
			row.name, row.rate.Remaining, row.rate.Limit, resetIn)
	}
}
