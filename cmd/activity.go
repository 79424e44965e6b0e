package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/spiffcs/devpulse/internal/constants"
	"github.com/spiffcs/devpulse/internal/envelope"
	"github.com/spiffcs/devpulse/internal/log"
	"github.com/spiffcs/devpulse/internal/output"
	"github.com/spiffcs/devpulse/internal/service"
	"github.com/spiffcs/devpulse/internal/tui"
)

// computeFunc runs one computation for the resolved window.
type computeFunc func(ctx context.Context, svc *service.Service, env *environment, from, to string, progress service.ProgressFunc) (envelope.Renderer, error)

// activityRuntime bundles TUI-related state that's threaded through an
// activity command.
type activityRuntime struct {
	useTUI  bool
	events  chan tui.Event
	tuiDone chan error
}

// startTUI initializes and starts the TUI goroutine if TUI mode is enabled.
func (rt *activityRuntime) startTUI(subject string) {
	if !rt.useTUI {
		return
	}
	rt.events = make(chan tui.Event, 100)
	rt.tuiDone = make(chan error, 1)
	go func() {
		rt.tuiDone <- tui.Run(rt.events, tui.WithSubject(subject))
	}()
}

// progress returns the service callback feeding the TUI, or nil.
func (rt *activityRuntime) progress() service.ProgressFunc {
	if rt.events == nil {
		return nil
	}
	return tui.Progress(rt.events)
}

// close closes the event channel and waits for the TUI to finish.
func (rt *activityRuntime) close() {
	if rt.events == nil {
		return
	}
	close(rt.events)
	<-rt.tuiDone
	rt.events = nil
}

// NewCmdGitHub creates the github command.
func NewCmdGitHub(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "github <login>",
		Short: "Pull request and review activity of a GitHub user",
		Long: `Counts the pull requests a user authored and merged, their average
cycle time, and the reviews and review comments they gave in the window.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActivity(cmd, opts, constants.IntegrationGitHub, args[0],
				func(ctx context.Context, svc *service.Service, env *environment, from, to string, progress service.ProgressFunc) (envelope.Renderer, error) {
					repos := opts.Repos
					if len(repos) == 0 {
						repos = env.cfg.GetGitHubRepos()
					}
					return svc.GitHubActivity(ctx, service.GitHubInput{
						Login:    args[0],
						FromDate: from,
						ToDate:   to,
						Repos:    repos,
					}, progress)
				})
		},
	}
	addActivityFlags(cmd, opts)
	cmd.Flags().StringSliceVar(&opts.Repos, "repo", nil, "Restrict to owner/name repositories (repeatable)")
	return cmd
}

// NewCmdJira creates the jira command.
func NewCmdJira(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jira <email-or-account-id>",
		Short: "Issue activity of a Jira assignee",
		Long: `Counts the issues assigned to a user and created in the window, how
many were resolved and reopened, and the average lead time.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActivity(cmd, opts, constants.IntegrationJira, args[0],
				func(ctx context.Context, svc *service.Service, _ *environment, from, to string, progress service.ProgressFunc) (envelope.Renderer, error) {
					return svc.JiraActivity(ctx, service.JiraInput{
						Principal: args[0],
						FromDate:  from,
						ToDate:    to,
						JQLExtra:  opts.JQLExtra,
					}, progress)
				})
		},
	}
	addActivityFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.JQLExtra, "jql", "", "Extra JQL conjoined to the query (e.g. \"project = ENG\")")
	return cmd
}

// NewCmdConfluence creates the confluence command.
func NewCmdConfluence(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "confluence <email-or-account-id>",
		Short: "Page and comment activity of a Confluence user",
		Long: `Counts the pages a user created and updated and the comments they
wrote in the window, broken down by space.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActivity(cmd, opts, constants.IntegrationConfluence, args[0],
				func(ctx context.Context, svc *service.Service, env *environment, from, to string, progress service.ProgressFunc) (envelope.Renderer, error) {
					space := opts.SpaceKey
					if space == "" {
						space = env.cfg.GetConfluenceSpace()
					}
					return svc.ConfluenceActivity(ctx, service.ConfluenceInput{
						Principal: args[0],
						FromDate:  from,
						ToDate:    to,
						SpaceKey:  space,
					}, progress)
				})
		},
	}
	addActivityFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.SpaceKey, "space", "", "Restrict to one space key")
	return cmd
}

// addActivityFlags adds the flags shared by the activity commands.
func addActivityFlags(cmd *cobra.Command, opts *Options) {
	cmd.Flags().StringVarP(&opts.Format, "output", "o", "", "Output format (table, json, markdown, text)")
	cmd.Flags().StringVar(&opts.From, "from", "", "First day of the window (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.To, "to", "", "Last day of the window, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&opts.Since, "since", "s", "", "Relative window ending today (e.g., 1w, 30d, 6mo; default 1w)")
	cmd.Flags().StringVar(&opts.EnvFile, "env-file", ".env", "Load credentials from this file when it exists")
	cmd.Flags().CountVarP(&opts.Verbosity, "verbose", "v", "Increase verbosity (-v info, -vv debug, -vvv trace)")

	// TUI flag with tri-state: nil = auto, true = force, false = disable
	cmd.Flags().Var(newTUIFlag(opts), "tui", "Enable/disable TUI progress (default: auto-detect)")

	addProfileFlags(cmd, &opts.ProfileOptions)
}

func runActivity(cmd *cobra.Command, opts *Options, integration, principal string, compute computeFunc) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	profiler := NewProfiler(opts.ProfileOptions)
	if err := profiler.Start(); err != nil {
		return err
	}
	defer profiler.Stop()

	rt := &activityRuntime{useTUI: shouldUseTUI(opts)}

	// Suppress logs during TUI to avoid interleaving with display
	if rt.useTUI {
		log.Initialize(opts.Verbosity, io.Discard)
	} else {
		log.Initialize(opts.Verbosity, os.Stderr)
	}

	env, err := loadEnvironment(opts.EnvFile)
	if err != nil {
		return err
	}

	formatName := opts.Format
	if formatName == "" {
		formatName = env.cfg.DefaultFormat
	}
	format, err := output.ParseFormat(formatName)
	if err != nil {
		return err
	}
	formatter := output.NewFormatter(format)
	out := cmd.OutOrStdout()

	fail := func(err error, secrets []string) error {
		rt.close()
		body := envelope.NewFailureBody(err, secrets...)
		if ferr := formatter.FormatFailure(body, out); ferr != nil {
			return ferr
		}
		return errReported
	}

	if err := env.creds.Require(integration); err != nil {
		return fail(err, nil)
	}
	svc, err := buildService(ctx, env.cfg, env.creds)
	if err != nil {
		return fail(err, nil)
	}
	from, to, err := resolveWindow(opts, time.Now())
	if err != nil {
		return fail(err, svc.Secrets())
	}

	rt.startTUI(fmt.Sprintf("%s %s..%s", principal, from, to))
	summary, err := compute(ctx, svc, env, from, to, rt.progress())
	if err != nil {
		return fail(err, svc.Secrets())
	}
	rt.close()

	return formatter.Format(summary, out)
}
