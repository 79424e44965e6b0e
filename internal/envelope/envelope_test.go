package envelope

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiffcs/devpulse/internal/apperr"
)

type fakeSummary struct {
	Authored int `json:"authored"`
}

func (fakeSummary) Title() string { return "Activity for alice (2025-11-01..2025-11-15)" }

func (s fakeSummary) Fields() []Field {
	return []Field{
		Value("Authored", "2"),
		Value("Avg cycle time", "n/a"),
		Header("Repositories"),
		Nested("acme/api", "1"),
	}
}

func TestBuild(t *testing.T) {
	s := fakeSummary{Authored: 2}
	env := Build(s)

	assert.Equal(t, s, env.Structured)
	want := "Activity for alice (2025-11-01..2025-11-15)\n" +
		"Authored:        2\n" +
		"Avg cycle time:  n/a\n" +
		"Repositories:\n" +
		"  acme/api:      1\n"
	assert.Equal(t, want, env.Text)
}

func TestBuildDeterministic(t *testing.T) {
	assert.Equal(t, Build(fakeSummary{}).Text, Build(fakeSummary{}).Text)
}

func TestFailure(t *testing.T) {
	err := apperr.RateLimited("github", 30*time.Second)
	env := Failure(err)

	body, ok := env.Structured.(FailureBody)
	require.True(t, ok)
	assert.Equal(t, apperr.KindRateLimited, body.Kind)
	assert.Equal(t, "github", body.Integration)
	require.NotNil(t, body.RetryAfterSeconds)
	assert.Equal(t, 30, *body.RetryAfterSeconds)
	assert.Contains(t, env.Text, "error (rate_limited)")
}

func TestFailureRedacts(t *testing.T) {
	cause := apperr.Unavailable("jira", 0, assert.AnError)
	cause.Message = "dial with token s3cr3t-value failed"
	env := Failure(cause, "s3cr3t-value")

	body := env.Structured.(FailureBody)
	assert.NotContains(t, body.Message, "s3cr3t-value")
	assert.NotContains(t, env.Text, "s3cr3t-value")
	assert.Equal(t, apperr.KindUnavailable, body.Kind)
}

func TestFailureCanceled(t *testing.T) {
	env := Failure(context.Canceled)
	body := env.Structured.(FailureBody)
	assert.Equal(t, apperr.KindCanceled, body.Kind)
	assert.Empty(t, body.Integration)
	assert.Nil(t, body.RetryAfterSeconds)
}
