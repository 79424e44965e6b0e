// Package tools exposes the activity computations as MCP tools.
package tools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/spiffcs/devpulse/internal/apperr"
	"github.com/spiffcs/devpulse/internal/constants"
	"github.com/spiffcs/devpulse/internal/envelope"
	"github.com/spiffcs/devpulse/internal/log"
	"github.com/spiffcs/devpulse/internal/service"
	"github.com/spiffcs/devpulse/internal/telemetry"
)

// Tool names.
const (
	GitHubTool     = "github_engineer_activity"
	JiraTool       = "jira_engineer_activity"
	ConfluenceTool = "confluence_engineer_activity"
)

// GitHubInput is the argument object of the GitHub tool.
type GitHubInput struct {
	Login    string   `json:"login" jsonschema:"GitHub login of the engineer. Example: octocat"`
	FromDate string   `json:"from_date" jsonschema:"First day of the window, YYYY-MM-DD (UTC)"`
	ToDate   string   `json:"to_date" jsonschema:"Last day of the window, YYYY-MM-DD (UTC), inclusive"`
	Repos    []string `json:"repos,omitempty" jsonschema:"Restrict to these owner/name repositories. Defaults to all repositories"`
}

// JiraInput is the argument object of the Jira tool.
type JiraInput struct {
	Principal string `json:"user_email_or_account_id" jsonschema:"Email address or Atlassian account id of the assignee"`
	FromDate  string `json:"from_date" jsonschema:"First day of the window, YYYY-MM-DD (UTC)"`
	ToDate    string `json:"to_date" jsonschema:"Last day of the window, YYYY-MM-DD (UTC), inclusive"`
	JQLExtra  string `json:"jql_extra,omitempty" jsonschema:"Extra JQL conjoined to the query. Example: project = ENG"`
}

// ConfluenceInput is the argument object of the Confluence tool.
type ConfluenceInput struct {
	Principal string `json:"user_email_or_account_id" jsonschema:"Email address or Atlassian account id of the author"`
	FromDate  string `json:"from_date" jsonschema:"First day of the window, YYYY-MM-DD (UTC)"`
	ToDate    string `json:"to_date" jsonschema:"Last day of the window, YYYY-MM-DD (UTC), inclusive"`
	SpaceKey  string `json:"space_key,omitempty" jsonschema:"Restrict to one space. Example: ENG"`
}

// Tools holds the handlers. current is consulted on every call so a
// reloaded configuration takes effect without re-registering.
type Tools struct {
	current func() *service.Service
}

// New returns handlers backed by current.
func New(current func() *service.Service) *Tools {
	return &Tools{current: current}
}

// NewServer builds an MCP server with one tool per configured integration.
func NewServer(current func() *service.Service, version string) *mcp.Server {
	t := New(current)
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "devpulse",
		Version: version,
	}, nil)

	svc := current()
	if svc.Configured(constants.IntegrationGitHub) {
		mcp.AddTool(server, &mcp.Tool{
			Name:        GitHubTool,
			Description: "Pull requests authored, merged and reviewed by a GitHub user in a date window, with cycle time and merge rate.",
		}, t.GitHub)
	}
	if svc.Configured(constants.IntegrationJira) {
		mcp.AddTool(server, &mcp.Tool{
			Name:        JiraTool,
			Description: "Issues assigned to a Jira user in a date window, with resolution rate, lead time and reopen quality.",
		}, t.Jira)
	}
	if svc.Configured(constants.IntegrationConfluence) {
		mcp.AddTool(server, &mcp.Tool{
			Name:        ConfluenceTool,
			Description: "Pages created and updated and comments written by a Confluence user in a date window, by space.",
		}, t.Confluence)
	}
	log.Info("mcp tools registered", "tools", Registered(svc))
	return server
}

// Registered lists the tool names NewServer exposes for svc.
func Registered(svc *service.Service) []string {
	var names []string
	for _, tool := range []struct{ name, integration string }{
		{GitHubTool, constants.IntegrationGitHub},
		{JiraTool, constants.IntegrationJira},
		{ConfluenceTool, constants.IntegrationConfluence},
	} {
		if svc.Configured(tool.integration) {
			names = append(names, tool.name)
		}
	}
	return names
}

// HTTPHandler serves server over the streamable HTTP transport.
func HTTPHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)
}

// GitHub handles github_engineer_activity.
func (t *Tools) GitHub(ctx context.Context, _ *mcp.CallToolRequest, in GitHubInput) (*mcp.CallToolResult, any, error) {
	ctx, span := telemetry.StartSpan(ctx, "tool."+GitHubTool)
	svc := t.current()
	summary, err := svc.GitHubActivity(ctx, service.GitHubInput{
		Login:    in.Login,
		FromDate: in.FromDate,
		ToDate:   in.ToDate,
		Repos:    in.Repos,
	}, nil)
	telemetry.EndSpan(span, err)
	return respond(GitHubTool, svc, summary, err)
}

// Jira handles jira_engineer_activity.
func (t *Tools) Jira(ctx context.Context, _ *mcp.CallToolRequest, in JiraInput) (*mcp.CallToolResult, any, error) {
	ctx, span := telemetry.StartSpan(ctx, "tool."+JiraTool)
	svc := t.current()
	summary, err := svc.JiraActivity(ctx, service.JiraInput{
		Principal: in.Principal,
		FromDate:  in.FromDate,
		ToDate:    in.ToDate,
		JQLExtra:  in.JQLExtra,
	}, nil)
	telemetry.EndSpan(span, err)
	return respond(JiraTool, svc, summary, err)
}

// Confluence handles confluence_engineer_activity.
func (t *Tools) Confluence(ctx context.Context, _ *mcp.CallToolRequest, in ConfluenceInput) (*mcp.CallToolResult, any, error) {
	ctx, span := telemetry.StartSpan(ctx, "tool."+ConfluenceTool)
	svc := t.current()
	summary, err := svc.ConfluenceActivity(ctx, service.ConfluenceInput{
		Principal: in.Principal,
		FromDate:  in.FromDate,
		ToDate:    in.ToDate,
		SpaceKey:  in.SpaceKey,
	}, nil)
	telemetry.EndSpan(span, err)
	return respond(ConfluenceTool, svc, summary, err)
}

// respond turns a computation outcome into a tool result. Failures are
// reported in the result, never as a protocol error.
func respond(tool string, svc *service.Service, summary envelope.Renderer, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		env := envelope.Failure(err, svc.Secrets()...)
		kind := apperr.KindOf(err)
		telemetry.Default.ObserveTool(tool, string(kind))
		log.Warn("tool call failed", "tool", tool, "kind", kind)
		return &mcp.CallToolResult{
			Content:           []mcp.Content{&mcp.TextContent{Text: env.Text}},
			StructuredContent: env.Structured,
			IsError:           true,
		}, nil, nil
	}

	env := envelope.Build(summary)
	telemetry.Default.ObserveTool(tool, "ok")
	log.Debug("tool call completed", "tool", tool)
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: env.Text}},
		StructuredContent: env.Structured,
	}, nil, nil
}
