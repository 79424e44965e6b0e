package cmd

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/spiffcs/devpulse/config"
	"github.com/spiffcs/devpulse/internal/apperr"
	"github.com/spiffcs/devpulse/internal/confluence"
	"github.com/spiffcs/devpulse/internal/constants"
	"github.com/spiffcs/devpulse/internal/ghclient"
	"github.com/spiffcs/devpulse/internal/jira"
	"github.com/spiffcs/devpulse/internal/service"
	"github.com/spiffcs/devpulse/internal/window"
)

// environment bundles the loaded configuration and credentials.
type environment struct {
	cfg   *config.Config
	creds config.Credentials
}

// loadEnvironment reads config files, the optional env file and the process
// environment.
func loadEnvironment(envFile string) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, apperr.Configuration("", "failed to load config: %v", err)
	}
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	creds, err := config.LoadCredentials(files...)
	if err != nil {
		return nil, apperr.Configuration("", "failed to load credentials: %v", err)
	}
	return &environment{cfg: cfg, creds: creds.WithConfig(cfg)}, nil
}

// buildService constructs a client for every integration whose credentials
// are present. A present but unusable configuration is an error.
func buildService(ctx context.Context, cfg *config.Config, creds config.Credentials) (*service.Service, error) {
	settings := cfg.GetFetchSettings()
	opts := []service.Option{service.WithResolvedStatuses(cfg.GetResolvedStatuses())}

	if creds.Configured(constants.IntegrationGitHub) {
		client, err := ghclient.NewClient(ctx, ghclient.Options{
			Token:       creds.GitHubToken,
			BaseURL:     creds.GitHubAPIURL,
			Timeout:     settings.Timeout,
			ItemCap:     settings.ItemCap,
			Concurrency: settings.Concurrency,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, service.WithGitHub(client))
	}

	if creds.Configured(constants.IntegrationJira) {
		client, err := jira.NewClient(jira.Options{
			BaseURL:     creds.JiraBaseURL,
			Email:       creds.JiraEmail,
			APIToken:    creds.JiraAPIToken,
			BearerToken: creds.JiraBearerToken,
			Timeout:     settings.Timeout,
			ItemCap:     settings.ItemCap,
			Concurrency: settings.Concurrency,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, service.WithJira(client))
	}

	if creds.Configured(constants.IntegrationConfluence) {
		client, err := confluence.NewClient(confluence.Options{
			BaseURL:     creds.ConfluenceBaseURL,
			Email:       creds.ConfluenceEmail,
			APIToken:    creds.ConfluenceAPIToken,
			BearerToken: creds.ConfluenceBearerToken,
			Timeout:     settings.Timeout,
			ItemCap:     settings.ItemCap,
			Concurrency: settings.Concurrency,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, service.WithConfluence(client))
	}

	return service.New(opts...), nil
}

// resolveWindow turns --from/--to or --since into the two date strings the
// service validates. --since defaults to one week when nothing is given.
func resolveWindow(opts *Options, now time.Time) (from, to string, err error) {
	absolute := opts.From != "" || opts.To != ""
	switch {
	case absolute && opts.Since != "":
		return "", "", apperr.Validation("use either --from/--to or --since, not both")
	case absolute:
		if opts.From == "" || opts.To == "" {
			return "", "", apperr.Validation("--from and --to must be given together")
		}
		return opts.From, opts.To, nil
	}

	since := opts.Since
	if since == "" {
		since = "1w"
	}
	w, err := window.Since(since, now)
	if err != nil {
		return "", "", err
	}
	return w.FromDate(), w.ToDate(), nil
}

// errReported marks an error whose details were already written.
var errReported = errors.New("command failed")

// IsReported reports whether err was already written to the user.
func IsReported(err error) bool {
	return errors.Is(err, errReported)
}
