package python

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/pyseek/pkg/cache"
	pyerrors "github.com/matzehuels/pyseek/pkg/errors"
	"github.com/matzehuels/pyseek/pkg/observability"
)

// DefaultEnvironmentName is the project environment directory looked for
// while walking up from the working directory.
const DefaultEnvironmentName = ".venv"

var environmentKeyer = cache.NewDefaultKeyer()

// Config is everything discovery reads from the outside world. It is
// assembled once by the caller; nothing in this package reads environment
// variables.
type Config struct {
	WorkingDir string

	// VirtualEnv and CondaPrefix are the active environment roots
	// (VIRTUAL_ENV and CONDA_PREFIX). Empty means none.
	VirtualEnv  string
	CondaPrefix string

	// SearchPath lists directories searched for interpreters, in order.
	SearchPath []string

	// EnvironmentName overrides DefaultEnvironmentName.
	EnvironmentName string

	ManagedDir string
	CacheDir   string

	// ParallelProbes bounds concurrent probes per source. Values below 2
	// probe one candidate at a time.
	ParallelProbes int

	// Downloads, when set, lets a NotFoundError report that a managed
	// download would have satisfied the request.
	Downloads []Download
}

// RequestSource records where the request passed to Find came from. It
// decides how a requires-python mismatch is treated.
type RequestSource int

const (
	// RequestFromUser is a request given on the command line.
	RequestFromUser RequestSource = iota
	// RequestFromVersionFile is a request read from a pin file.
	RequestFromVersionFile
	// RequestFromScript is the implicit request of a script run.
	RequestFromScript
	// RequestFromDefault means no request was given anywhere.
	RequestFromDefault
)

// Script describes a script whose dedicated environment takes precedence
// over every other environment.
type Script struct {
	Path           string
	Dependencies   []string
	RequiresPython *RequiresPython
}

// FindOptions are the per-call inputs of Find.
type FindOptions struct {
	Request       Request
	RequestSource RequestSource

	// VersionFile is the pin the request was read from, if any.
	VersionFile *VersionFile

	// RequiresPython is the combined project constraint; nil when there is
	// no project or it was disabled.
	RequiresPython *RequiresPython

	Preferences Preferences
	Script      *Script
}

// FindResult is a selected interpreter and the warnings raised on the way.
type FindResult struct {
	Interpreter *Interpreter
	Warnings    []string
}

// Finder selects interpreters from the configured sources.
type Finder struct {
	cfg    Config
	prober *Prober
	rep    Reporter
}

// NewFinder returns a Finder. A nil prober runs interpreters directly and a
// nil reporter discards messages.
func NewFinder(cfg Config, prober *Prober, rep Reporter) *Finder {
	if prober == nil {
		prober = NewProber(nil)
	}
	if rep == nil {
		rep = NopReporter{}
	}
	return &Finder{cfg: cfg, prober: prober, rep: rep}
}

func (f *Finder) environmentName() string {
	if f.cfg.EnvironmentName != "" {
		return f.cfg.EnvironmentName
	}
	return DefaultEnvironmentName
}

// Find returns the first interpreter, in source precedence order, that
// satisfies opts. Candidates failing to probe are skipped unless they come
// from a source naming exactly one interpreter.
func (f *Finder) Find(ctx context.Context, opts FindOptions) (*FindResult, error) {
	rec := newRecorder(f.rep)
	memo := newProbeMemo(f.prober)
	hooks := observability.Selection()

	for i, entry := range sourceTable {
		if !enabledSource(f, &opts, i) {
			continue
		}
		candidates, err := collect(entry.enumerate(ctx, f, &opts))
		if err != nil {
			return nil, err
		}
		f.prefetch(ctx, memo, candidates)

		for _, c := range candidates {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			hooks.OnCandidate(ctx, c.Source.String(), c.Executable)

			interp, err := memo.probe(ctx, c.Executable)
			if err != nil {
				if c.Source.probeErrorsFatal() {
					return nil, pyerrors.Wrap(pyerrors.ErrCodeProbeFailed, err,
						"Failed to inspect Python interpreter from %s at `%s`", c.Source, c.Display())
				}
				rec.Debugf("Skipping interpreter at `%s` from %s: %v", c.Executable, c.Source, err)
				hooks.OnSkip(ctx, c.Source.String(), c.Executable, err.Error())
				continue
			}
			interp = interp.withCandidate(c)

			if reason, ok := f.accept(interp, &opts, rec); !ok {
				rec.Debugf("Skipping %s at `%s`: %s", interp.Describe(), c.Executable, reason)
				hooks.OnSkip(ctx, c.Source.String(), c.Executable, reason)
				continue
			}
			hooks.OnSelect(ctx, c.Source.String(), c.Executable, interp.Version.String())
			return &FindResult{Interpreter: interp, Warnings: rec.Warnings()}, nil
		}
	}
	return nil, f.notFound(&opts)
}

// accept decides whether interp is selected. Mismatches against an explicit
// request's project constraint are accepted with a warning.
func (f *Finder) accept(interp *Interpreter, opts *FindOptions, rep Reporter) (string, bool) {
	if !opts.Request.Satisfies(interp) {
		return "does not satisfy the request", false
	}
	if interp.Source == SourceScriptEnvironment && opts.Script != nil && !opts.Script.RequiresPython.Contains(interp.Version) {
		return "does not satisfy the script's Python requirement", false
	}

	src, violated := opts.RequiresPython.Violation(interp.Version)
	if !violated {
		return "", true
	}
	switch opts.RequestSource {
	case RequestFromDefault, RequestFromScript:
		return "incompatible with " + src.Label(), false
	case RequestFromVersionFile:
		name := VersionFileName
		if opts.VersionFile != nil {
			name = opts.VersionFile.FileName()
		}
		rep.Warnf("The Python request from `%s` resolved to Python %s, which is incompatible with the project's Python requirement: `%s`%s\nUse `pyseek pin` to update the `%s` file to a compatible version",
			name, interp.Version, opts.RequiresPython, sourceSuffix(src), name)
	default:
		rep.Warnf("The requested interpreter resolved to Python %s, which is incompatible with the project's Python requirement: `%s`%s",
			interp.Version, opts.RequiresPython, sourceSuffix(src))
	}
	return "", true
}

func sourceSuffix(src RequiresPythonSource) string {
	s := fmt.Sprintf(" (from `%s`)", src.Label())
	if src.Scope == ScopeDependencyGroup {
		s += "."
	}
	return s
}

func (f *Finder) notFound(opts *FindOptions) error {
	req := opts.Request
	if (req.Kind == RequestDefault || req.Kind == RequestAny) && opts.RequiresPython != nil {
		req = opts.RequiresPython.Request()
	}
	err := &NotFoundError{Request: req, Sources: opts.Preferences.SourcesDescription()}
	if len(f.cfg.Downloads) > 0 {
		_, err.DownloadAvailable = FindDownload(f.cfg.Downloads, req, HostPlatform())
	}
	return err
}

// prefetch probes candidates concurrently so that ordered evaluation hits
// the memo. Errors are left in the memo for evaluation to report.
func (f *Finder) prefetch(ctx context.Context, memo *probeMemo, candidates []Candidate) {
	if f.cfg.ParallelProbes < 2 || len(candidates) < 2 {
		return
	}
	var g errgroup.Group
	g.SetLimit(f.cfg.ParallelProbes)
	for _, c := range candidates {
		g.Go(func() error {
			_, _ = memo.probe(ctx, c.Executable)
			return nil
		})
	}
	_ = g.Wait()
}

func collect(seq iter.Seq2[Candidate, error]) ([]Candidate, error) {
	var out []Candidate
	for c, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// All probes every candidate from every source allowed by prefs, skipping
// failures and duplicate paths. The order is source precedence order.
func (f *Finder) All(ctx context.Context, prefs Preferences) ([]*Interpreter, error) {
	memo := newProbeMemo(f.prober)
	opts := FindOptions{Request: Request{Kind: RequestAny}, Preferences: prefs}

	var out []*Interpreter
	var seen []string
	for i, entry := range sourceTable {
		if !enabledSource(f, &opts, i) {
			continue
		}
		candidates, err := collect(entry.enumerate(ctx, f, &opts))
		if err != nil {
			return nil, err
		}
		f.prefetch(ctx, memo, candidates)
		for _, c := range candidates {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			key := absPath(c.Executable)
			if slices.Contains(seen, key) {
				continue
			}
			seen = append(seen, key)
			interp, err := memo.probe(ctx, c.Executable)
			if err != nil {
				f.rep.Debugf("Skipping interpreter at `%s` from %s: %v", c.Executable, c.Source, err)
				continue
			}
			out = append(out, interp.withCandidate(c))
		}
	}
	return out, nil
}
