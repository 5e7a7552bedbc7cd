package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pyseek/pkg/project"
	"github.com/matzehuels/pyseek/pkg/python"
)

// Operations named in pyproject.toml parse warnings.
const (
	opSettings    = "settings discovery"
	opDiscovery   = "Python discovery"
	opEnvironment = "environment creation"
)

// discoveryOpts holds the flags shared by commands that look for an
// interpreter.
type discoveryOpts struct {
	system    bool   // only consider system interpreters
	noSystem  bool   // also consider environments (default)
	managed   bool   // only consider managed installations
	noManaged bool   // never consider managed installations
	noProject bool   // ignore pyproject.toml (also --no-workspace)
	script    string // select the interpreter for this script
}

func (o *discoveryOpts) register(cmd *cobra.Command, withScript bool) {
	o.registerPreferences(cmd)
	flags := cmd.Flags()
	flags.BoolVar(&o.noProject, "no-project", false, "ignore the project's requires-python")
	flags.BoolVar(&o.noProject, "no-workspace", false, "alias of --no-project")
	if withScript {
		flags.StringVar(&o.script, "script", "", "find the interpreter for a script with inline metadata")
	}
}

// registerPreferences adds only the source selection flags.
func (o *discoveryOpts) registerPreferences(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.BoolVar(&o.system, "system", false, "only find system interpreters, skipping virtual environments")
	flags.BoolVar(&o.noSystem, "no-system", false, "allow virtual environments")
	flags.BoolVar(&o.managed, "managed-python", false, "only use managed Python installations")
	flags.BoolVar(&o.noManaged, "no-managed-python", false, "never use managed Python installations")
	cmd.MarkFlagsMutuallyExclusive("system", "no-system")
	cmd.MarkFlagsMutuallyExclusive("managed-python", "no-managed-python")
}

// preferences combines flags with settings. Flags win.
func (o *discoveryOpts) preferences(c *CLI) python.Preferences {
	var p python.Preferences
	switch {
	case o.system:
		p.System = python.SystemOnly
	case o.noSystem:
		p.System = python.SystemAllowed
	case c.settings.SystemPython:
		p.System = python.SystemOnly
	}
	switch {
	case o.managed:
		p.Managed = python.ManagedOnly
	case o.noManaged:
		p.Managed = python.ManagedNever
	case c.settings.ManagedPython:
		p.Managed = python.ManagedOnly
	case c.settings.NoManagedPython:
		p.Managed = python.ManagedNever
	}
	return p
}

// discoverProject returns the nearest project, or nil when there is none,
// --no-project is set, or pyproject.toml cannot be parsed. Parse failures
// are downgraded to a warning.
func (c *CLI) discoverProject(o *discoveryOpts, operation string) *project.Project {
	if o.noProject {
		return nil
	}
	proj, err := project.Discover(c.workDir)
	if err != nil {
		c.warnProjectParse(err, operation)
		return nil
	}
	return proj
}

// projectRequiresPython returns the combined requires-python of proj. A
// conflict between the project and its groups is fatal; a malformed
// specifier is warned about and ignored.
func (c *CLI) projectRequiresPython(proj *project.Project, operation string) (*python.RequiresPython, error) {
	if proj == nil {
		return nil, nil
	}
	rp, err := proj.Requirement()
	var perr *project.ParseError
	if errors.As(err, &perr) {
		c.warnProjectParse(err, operation)
		return nil, nil
	}
	return rp, err
}

func (c *CLI) warnProjectParse(err error, operation string) {
	var perr *project.ParseError
	if errors.As(err, &perr) {
		err = perr.Err
	}
	c.rep.Warnf("Failed to parse `%s` during %s:\n%s", project.FileName, operation, indent(err.Error(), "  "))
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// findOptions resolves what to look for, in precedence order: an explicit
// request, a script's metadata, the nearest pin file, then the default.
func (c *CLI) findOptions(o *discoveryOpts, request, operation string) (python.FindOptions, error) {
	opts := python.FindOptions{
		Request:       python.DefaultRequest,
		RequestSource: python.RequestFromDefault,
		Preferences:   o.preferences(c),
	}

	if o.script != "" && request == "" {
		loaded, err := project.LoadScript(c.abs(o.script))
		if err != nil {
			return opts, err
		}
		script, err := loaded.Python()
		if err != nil {
			return opts, err
		}
		opts.RequestSource = python.RequestFromScript
		opts.Script = script
		opts.RequiresPython = script.RequiresPython
		return opts, nil
	}

	proj := c.discoverProject(o, operation)
	rp, err := c.projectRequiresPython(proj, operation)
	if err != nil {
		return opts, err
	}
	opts.RequiresPython = rp

	if request != "" {
		req, err := python.ParseRequest(request)
		if err != nil {
			return opts, err
		}
		opts.Request = req
		opts.RequestSource = python.RequestFromUser
		return opts, nil
	}

	vf, err := c.discoverVersionFile(proj)
	if err != nil {
		return opts, err
	}
	if vf != nil {
		if req, ok := vf.Preferred(c.rep); ok {
			c.Logger.Debug("using pinned request", "file", vf.Path, "request", req.String())
			opts.Request = req
			opts.RequestSource = python.RequestFromVersionFile
			opts.VersionFile = vf
		}
	}
	return opts, nil
}

func (c *CLI) discoverVersionFile(proj *project.Project) (*python.VersionFile, error) {
	pin := python.PinOptions{NoConfig: c.noConfig, GlobalDir: c.settings.ConfigDir}
	if proj != nil {
		pin.StopAt = proj.Root
	}
	return python.DiscoverVersionFile(c.workDir, pin)
}

// find runs discovery. A script whose interpreter cannot be found reports
// without the error label.
func (c *CLI) find(ctx context.Context, opts python.FindOptions) (*python.Interpreter, error) {
	finder, closeCache := c.newFinder(ctx)
	defer closeCache()

	res, err := finder.Find(ctx, opts)
	if err != nil {
		var nf *python.NotFoundError
		if opts.Script != nil && errors.As(err, &nf) {
			return nil, &scriptNotFoundError{nf}
		}
		return nil, err
	}
	return res.Interpreter, nil
}

// abs resolves p against the working directory.
func (c *CLI) abs(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.workDir, p)
}

// display renders p relative to the working directory when it lies below
// it.
func (c *CLI) display(p string) string {
	rel, err := filepath.Rel(c.workDir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return rel
}

func describe(interp *python.Interpreter) string {
	return fmt.Sprintf("%s interpreter at: %s", interp.Describe(), interp.Executable)
}
