// Package constants provides a centralized location for the default values
// and magic numbers used throughout devpulse.
package constants

import "time"

// Fetch limits
const (
	// DefaultItemCap is the maximum number of records fetched per
	// underlying query when no cap is configured.
	DefaultItemCap = 200

	// GitHubMaxPageSize is the largest per_page GitHub accepts.
	GitHubMaxPageSize = 100

	// JiraMaxPageSize is the largest maxResults requested from Jira search.
	JiraMaxPageSize = 100

	// JiraChangelogCap bounds how many changelog entries are read per issue.
	JiraChangelogCap = 1000

	// ConfluenceMaxPageSize is the page limit used for Confluence search.
	ConfluenceMaxPageSize = 50

	// BodyExcerptBytes bounds how much of a rejected response body is kept
	// on the error.
	BodyExcerptBytes = 512
)

// Concurrency and timeouts
const (
	// DefaultConcurrency bounds per-item fan-out inside one invocation.
	DefaultConcurrency = 8

	// DefaultRequestTimeout is applied to every upstream HTTP call.
	DefaultRequestTimeout = 30 * time.Second

	// ShutdownTimeout bounds graceful shutdown of the HTTP server.
	ShutdownTimeout = 10 * time.Second
)

// Rate limiting constants
const (
	// RateLimitLowWatermark is the threshold below which rate limit
	// warnings are logged.
	RateLimitLowWatermark = 100
)

// Integration names
const (
	IntegrationGitHub     = "github"
	IntegrationJira       = "jira"
	IntegrationConfluence = "confluence"
)

// DefaultResolvedStatuses is the closed set of issue statuses treated as
// resolved when none are configured.
var DefaultResolvedStatuses = []string{"Done", "Resolved", "Closed", "Fix Released", "Complete"}

// GitHub REST headers
const (
	GitHubAcceptHeader = "application/vnd.github+json"
	GitHubAPIVersion   = "2022-11-28"
)

// DefaultGitHubAPIURL is the public GitHub REST endpoint.
const DefaultGitHubAPIURL = "https://api.github.com/"
