package cmd

import (
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/spiffcs/devpulse/internal/log"
)

// ProfileOptions names the profile files to write. Empty paths disable
// the corresponding profile.
type ProfileOptions struct {
	CPUProfile string
	MemProfile string
	Trace      string
}

// Enabled reports whether any profile is requested.
func (o ProfileOptions) Enabled() bool {
	return o.CPUProfile != "" || o.MemProfile != "" || o.Trace != ""
}

func addProfileFlags(cmd *cobra.Command, o *ProfileOptions) {
	cmd.Flags().StringVar(&o.CPUProfile, "cpuprofile", "", "Write CPU profile to file")
	cmd.Flags().StringVar(&o.MemProfile, "memprofile", "", "Write memory profile to file")
	cmd.Flags().StringVar(&o.Trace, "trace", "", "Write execution trace to file")
}

// Profiler runs the CPU profile and execution trace for the lifetime of
// one command and writes the heap profile when it stops.
type Profiler struct {
	opts      ProfileOptions
	cpuFile   *os.File
	traceFile *os.File
}

// NewProfiler returns a profiler for opts. Nothing starts until Start.
func NewProfiler(opts ProfileOptions) *Profiler {
	return &Profiler{opts: opts}
}

// Start begins CPU profiling and tracing. On error nothing is left running.
func (p *Profiler) Start() error {
	if !p.opts.Enabled() {
		return nil
	}

	if path := p.opts.CPUProfile; path != "" {
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "create CPU profile")
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return errors.Wrap(err, "start CPU profile")
		}
		p.cpuFile = f
	}

	if path := p.opts.Trace; path != "" {
		f, err := os.Create(path)
		if err != nil {
			p.stopCPU()
			return errors.Wrap(err, "create trace")
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			p.stopCPU()
			return errors.Wrap(err, "start trace")
		}
		p.traceFile = f
	}

	log.Debug("profiling started", "cpu", p.opts.CPUProfile, "trace", p.opts.Trace, "mem", p.opts.MemProfile)
	return nil
}

// Stop ends tracing and CPU profiling, then writes the heap profile.
// Failures are logged; the command result stands.
func (p *Profiler) Stop() {
	if p.traceFile != nil {
		trace.Stop()
		closeLogged(p.traceFile, "trace")
		p.traceFile = nil
	}
	p.stopCPU()

	if p.opts.MemProfile != "" {
		if err := writeHeapProfile(p.opts.MemProfile); err != nil {
			log.Warn("memory profile not written", "path", p.opts.MemProfile, "error", err)
		}
	}
}

func (p *Profiler) stopCPU() {
	if p.cpuFile == nil {
		return
	}
	pprof.StopCPUProfile()
	closeLogged(p.cpuFile, "CPU profile")
	p.cpuFile = nil
}

func writeHeapProfile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	runtime.GC()
	return pprof.WriteHeapProfile(f)
}

func closeLogged(f *os.File, what string) {
	if err := f.Close(); err != nil {
		log.Warn("could not close "+what, "path", f.Name(), "error", err)
	}
}
