package config

import (
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/spiffcs/devpulse/internal/apperr"
	"github.com/spiffcs/devpulse/internal/constants"
)

// Credentials holds the secrets and endpoints read from the environment.
// Tokens are only ever read from the environment, never from config files.
type Credentials struct {
	GitHubToken  string `env:"GITHUB_TOKEN"`
	GitHubAPIURL string `env:"GITHUB_API_URL"`

	JiraBaseURL     string `env:"JIRA_BASE_URL"`
	JiraEmail       string `env:"JIRA_EMAIL"`
	JiraAPIToken    string `env:"JIRA_API_TOKEN"`
	JiraBearerToken string `env:"JIRA_BEARER_TOKEN"`

	ConfluenceBaseURL     string `env:"CONFLUENCE_BASE_URL"`
	ConfluenceEmail       string `env:"CONFLUENCE_EMAIL"`
	ConfluenceAPIToken    string `env:"CONFLUENCE_API_TOKEN"`
	ConfluenceBearerToken string `env:"CONFLUENCE_BEARER_TOKEN"`
}

// LoadCredentials reads credentials from the environment after loading any
// of envFiles that exist. Variables already set in the environment win over
// the files.
func LoadCredentials(envFiles ...string) (Credentials, error) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Credentials{}, errors.Wrapf(err, "load %s", f)
		}
	}

	var c Credentials
	if err := cleanenv.ReadEnv(&c); err != nil {
		return Credentials{}, errors.Wrap(err, "read environment")
	}
	return c, nil
}

// WithConfig fills endpoints the environment left empty from cfg.
func (c Credentials) WithConfig(cfg *Config) Credentials {
	if c.GitHubAPIURL == "" && cfg.GitHub != nil {
		c.GitHubAPIURL = cfg.GitHub.APIURL
	}
	if c.JiraBaseURL == "" && cfg.Jira != nil {
		c.JiraBaseURL = cfg.Jira.BaseURL
	}
	if c.ConfluenceBaseURL == "" && cfg.Confluence != nil {
		c.ConfluenceBaseURL = cfg.Confluence.BaseURL
	}
	return c
}

// Missing lists the environment variables integration still needs.
func (c Credentials) Missing(integration string) []string {
	var missing []string
	need := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	switch integration {
	case constants.IntegrationGitHub:
		need("GITHUB_TOKEN", c.GitHubToken)
	case constants.IntegrationJira:
		need("JIRA_BASE_URL", c.JiraBaseURL)
		if c.JiraBearerToken == "" {
			need("JIRA_EMAIL", c.JiraEmail)
			need("JIRA_API_TOKEN", c.JiraAPIToken)
		}
	case constants.IntegrationConfluence:
		need("CONFLUENCE_BASE_URL", c.ConfluenceBaseURL)
		if c.ConfluenceBearerToken == "" {
			need("CONFLUENCE_EMAIL", c.ConfluenceEmail)
			need("CONFLUENCE_API_TOKEN", c.ConfluenceAPIToken)
		}
	}
	return missing
}

// Configured reports whether integration has everything it needs.
func (c Credentials) Configured(integration string) bool {
	return len(c.Missing(integration)) == 0
}

// Require returns a configuration error naming the missing variables.
func (c Credentials) Require(integration string) error {
	missing := c.Missing(integration)
	if len(missing) == 0 {
		return nil
	}
	return apperr.Configuration(integration, "%s is not configured: set %s", integration, strings.Join(missing, ", "))
}
