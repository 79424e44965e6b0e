package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/spiffcs/devpulse/internal/apperr"
	"github.com/spiffcs/devpulse/internal/envelope"
)

type fakeSummary struct {
	Login    string `json:"login"`
	Authored int    `json:"authored"`
}

func (fakeSummary) Title() string { return "GitHub activity for alice" }

func (s fakeSummary) Fields() []envelope.Field {
	return []envelope.Field{
		envelope.Value("Pull requests authored", "2"),
		envelope.Value("Avg cycle time", "n/a"),
		envelope.Header("Repositories"),
		envelope.Item("acme/api"),
		envelope.Item("acme/web"),
	}
}

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "table", want: FormatTable},
		{in: "JSON", want: FormatJSON},
		{in: " markdown ", want: FormatMarkdown},
		{in: "text", want: FormatText},
		{in: "yaml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTextFormatterMatchesEnvelope(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatText).Format(fakeSummary{}, &buf); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), envelope.Render(fakeSummary{}); got != want {
		t.Errorf("text output = %q, want %q", got, want)
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatJSON).Format(fakeSummary{Login: "alice", Authored: 2}, &buf); err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if got["login"] != "alice" || got["authored"] != float64(2) {
		t.Errorf("unexpected JSON: %v", got)
	}
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := &TableFormatter{}
	if err := f.Format(fakeSummary{}, &buf); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	want := []string{
		"GitHub activity for alice",
		strings.Repeat("━", 34),
		"Pull requests authored  2",
		"Avg cycle time          n/a",
		"Repositories:",
		"  - acme/api",
		"  - acme/web",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), buf.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestTableFormatterTruncates(t *testing.T) {
	var buf bytes.Buffer
	f := &TableFormatter{Width: 20}
	if err := f.Format(fakeSummary{}, &buf); err != nil {
		t.Fatal(err)
	}
	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")[2:] {
		if w := len([]rune(line)); w > 20 {
			t.Errorf("line %q is %d wide, want <= 20", line, w)
		}
	}
}

func TestMarkdownFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatMarkdown).Format(fakeSummary{}, &buf); err != nil {
		t.Fatal(err)
	}
	want := "## GitHub activity for alice\n\n" +
		"| Metric | Value |\n" +
		"|--------|-------|\n" +
		"| Pull requests authored | 2 |\n" +
		"| Avg cycle time | n/a |\n" +
		"\n### Repositories\n\n" +
		"- acme/api\n" +
		"- acme/web\n"
	if buf.String() != want {
		t.Errorf("markdown output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestFormatFailure(t *testing.T) {
	retry := 30
	body := envelope.FailureBody{Kind: apperr.KindRateLimited, Integration: "github", Message: "rate limited", RetryAfterSeconds: &retry}

	tests := []struct {
		format Format
		want   string
	}{
		{format: FormatText, want: "error (rate_limited): rate limited\n"},
		{format: FormatTable, want: "error (rate_limited): rate limited\n  retry after 30s\n"},
		{format: FormatMarkdown, want: "> **Error (rate_limited):** rate limited\n"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewFormatter(tt.format).FormatFailure(body, &buf); err != nil {
				t.Fatal(err)
			}
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}

	var buf bytes.Buffer
	if err := NewFormatter(FormatJSON).FormatFailure(body, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"retry_after_seconds": 30`) {
		t.Errorf("JSON failure missing retry_after_seconds: %s", buf.String())
	}
}
