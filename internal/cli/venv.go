package cli

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pyseek/pkg/venv"
)

// venvOpts holds the command-line flags for the venv command.
type venvOpts struct {
	discoveryOpts
	python             string
	clear              bool
	allowExisting      bool
	relocatable        bool
	seed               bool
	seedPackages       []string
	prompt             string
	systemSitePackages bool
}

func (o *venvOpts) options() venv.Options {
	return venv.Options{
		Clear:              o.clear,
		AllowExisting:      o.allowExisting,
		Relocatable:        o.relocatable,
		Seed:               o.seed,
		SeedPackages:       o.seedPackages,
		Prompt:             o.prompt,
		SystemSitePackages: o.systemSitePackages,
	}
}

// venvCommand creates the venv command.
func (c *CLI) venvCommand() *cobra.Command {
	var opts venvOpts

	cmd := &cobra.Command{
		Use:   "venv [PATH]",
		Short: "Create a virtual environment",
		Long: `Create a virtual environment.

The environment is created at PATH, or at .venv in the project root (or
the working directory when there is no project). The interpreter is chosen
like "pyseek find" does, except that existing virtual environments are
only used when named explicitly.

Examples:
  pyseek venv                       # .venv with the default interpreter
  pyseek venv --python 3.12 env     # env with Python 3.12
  pyseek venv --seed --clear        # rebuild .venv with pip installed`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var target string
			if len(args) == 1 {
				target = args[0]
			}
			return c.runVenv(cmd, &opts, target)
		},
	}

	opts.register(cmd, false)
	flags := cmd.Flags()
	flags.StringVarP(&opts.python, "python", "p", "", "the Python interpreter to use")
	_ = cmd.RegisterFlagCompletionFunc("python", completePythonFlag)
	flags.BoolVar(&opts.clear, "clear", false, "remove any existing files at the target first")
	flags.BoolVar(&opts.allowExisting, "allow-existing", false, "build into an existing directory without clearing it")
	flags.BoolVar(&opts.relocatable, "relocatable", false, "make the environment relocatable")
	flags.BoolVar(&opts.seed, "seed", false, "install seed packages (pip, and setuptools and wheel before 3.12)")
	flags.StringSliceVar(&opts.seedPackages, "seed-package", nil, "seed this package instead of the defaults (implies --seed, repeatable)")
	flags.StringVar(&opts.prompt, "prompt", "", "the prompt shown while the environment is active")
	flags.BoolVar(&opts.systemSitePackages, "system-site-packages", false, "give the environment access to the system site-packages")
	cmd.MarkFlagsMutuallyExclusive("clear", "allow-existing")

	return cmd
}

func (c *CLI) runVenv(cmd *cobra.Command, opts *venvOpts, target string) error {
	ctx := cmd.Context()
	if len(opts.seedPackages) > 0 {
		opts.seed = true
	}

	root := c.venvRoot(&opts.discoveryOpts, target)
	if err := venv.CheckTarget(root); err != nil {
		return err
	}

	// The environment being replaced must not be picked as its own base.
	if !opts.noSystem {
		opts.system = true
	}
	findOptions, err := c.findOptions(&opts.discoveryOpts, opts.python, opEnvironment)
	if err != nil {
		return err
	}
	interp, err := c.find(ctx, findOptions)
	if err != nil {
		return err
	}
	c.printStatus("Using %s", describe(interp))

	display := c.display(root)
	if opts.seed {
		c.printStatus("Creating virtual environment with seed packages at: %s", StyleHighlight.Render(display))
	} else {
		c.printStatus("Creating virtual environment at: %s", StyleHighlight.Render(display))
	}

	builder := venv.NewBuilder(c.rep, venv.EnsurePipSeeder{})
	var spinner *Spinner
	if opts.seed {
		spinner = newSpinnerWithContext(ctx, c.Err, "Installing seed packages...")
		spinner.Start()
	}
	prog := newProgress(loggerFromContext(ctx), "venv")
	res, err := builder.Create(ctx, interp, root, opts.options())
	if spinner != nil {
		switch {
		case spinner.Cancelled():
			spinner.Stop()
			return ctx.Err()
		case err != nil:
			spinner.Stop()
		default:
			noun := "packages"
			if len(res.Seeded) == 1 {
				noun = "package"
			}
			spinner.StopWithSuccess(fmt.Sprintf("Installed %d seed %s", len(res.Seeded), noun))
		}
	}
	if err != nil {
		return err
	}
	prog.done("root", res.Layout.Root, "seeded", len(res.Seeded))

	for _, pkg := range res.Seeded {
		c.printAdded(pkg.String())
	}
	c.printNextStep("Activate with", activateCommand(display, res.Layout))
	return nil
}

// venvRoot returns the absolute target path. Without an explicit target the
// project environment name is used below the project root.
func (c *CLI) venvRoot(opts *discoveryOpts, target string) string {
	if target != "" {
		return c.abs(target)
	}
	base := c.workDir
	if proj := c.discoverProject(opts, opEnvironment); proj != nil {
		base = proj.Root
	}
	name := c.settings.ProjectEnvironment
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(base, name)
}

func activateCommand(display string, l venv.Layout) string {
	bin := filepath.Base(l.Bin)
	if runtime.GOOS == "windows" {
		return filepath.Join(display, bin, "activate")
	}
	return "source " + filepath.Join(display, bin, "activate")
}
