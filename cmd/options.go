package cmd

// Options holds the shared command-line options for the devpulse CLI.
type Options struct {
	Format    string
	From      string
	To        string
	Since     string
	Verbosity int
	TUI       *bool // nil = auto-detect, true = force TUI, false = disable TUI
	EnvFile   string

	// Per-integration filters
	Repos    []string // GitHub owner/name repositories
	JQLExtra string   // Jira clause conjoined to the query
	SpaceKey string   // Confluence space

	ProfileOptions
}

// Option is a functional option for configuring Options.
type Option func(*Options)

// NewOptions creates a new Options with defaults and applies any provided options.
func NewOptions(opts ...Option) *Options {
	o := &Options{
		EnvFile: ".env",
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithFormat sets the output format (table, json, markdown, text).
func WithFormat(format string) Option {
	return func(o *Options) {
		o.Format = format
	}
}

// WithWindow sets an absolute date window.
func WithWindow(from, to string) Option {
	return func(o *Options) {
		o.From = from
		o.To = to
	}
}

// WithSince sets a relative window (e.g., "1w", "30d", "6mo").
func WithSince(since string) Option {
	return func(o *Options) {
		o.Since = since
	}
}

// WithVerbosity sets the verbosity level.
func WithVerbosity(v int) Option {
	return func(o *Options) {
		o.Verbosity = v
	}
}

// WithTUI controls TUI mode (nil = auto-detect, true = force, false = disable).
func WithTUI(tui *bool) Option {
	return func(o *Options) {
		o.TUI = tui
	}
}

// WithCPUProfile sets the CPU profile output file.
func WithCPUProfile(path string) Option {
	return func(o *Options) {
		o.CPUProfile = path
	}
}

// WithMemProfile sets the memory profile output file.
func WithMemProfile(path string) Option {
	return func(o *Options) {
		o.MemProfile = path
	}
}

// WithTrace sets the execution trace output file.
func WithTrace(path string) Option {
	return func(o *Options) {
		o.Trace = path
	}
}
