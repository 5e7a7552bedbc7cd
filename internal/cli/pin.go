package cli

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/spf13/cobra"

	pyerrors "github.com/matzehuels/pyseek/pkg/errors"
	"github.com/matzehuels/pyseek/pkg/python"
)

// pinOpts holds the command-line flags for the pin command.
type pinOpts struct {
	discoveryOpts
	global bool // write the user-level pin in the config directory
}

// pinCommand creates the pin command.
func (c *CLI) pinCommand() *cobra.Command {
	var opts pinOpts

	cmd := &cobra.Command{
		Use:   "pin [REQUEST]",
		Short: "Pin a Python version in .python-version",
		Long: `Pin a Python version in .python-version.

Without a request, the current pin is printed. The pin is written to the
project root, or to the working directory when there is no project.

Examples:
  pyseek pin              # show the current pin
  pyseek pin 3.12         # pin Python 3.12
  pyseek pin --global pypy  # pin PyPy for every project`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return c.showPin(&opts)
			}
			return c.writePin(cmd, &opts, args[0])
		},
	}

	opts.register(cmd, false)
	cmd.ValidArgsFunction = completeRequest
	cmd.Flags().BoolVar(&opts.global, "global", false, "update the global pin instead of the project's")

	return cmd
}

// showPin prints the request of the pin file in effect.
func (c *CLI) showPin(opts *pinOpts) error {
	var (
		vf  *python.VersionFile
		err error
	)
	if opts.global {
		vf, err = python.ReadVersionFile(filepath.Join(c.settings.ConfigDir, python.VersionFileName))
		if isNotExist(err) {
			vf, err = nil, nil
		}
	} else {
		vf, err = c.discoverVersionFile(c.discoverProject(&opts.discoveryOpts, opSettings))
	}
	if err != nil {
		return err
	}
	if vf == nil {
		return pyerrors.New(pyerrors.ErrCodeNotFound, "No pinned Python version found")
	}
	req, ok := vf.Preferred(c.rep)
	if !ok {
		return pyerrors.New(pyerrors.ErrCodeNotFound, "No usable Python request in `%s`", vf.Path)
	}
	c.printResult("%s", req)
	return nil
}

// writePin validates request and writes it. A request no interpreter
// satisfies is still pinned, with a warning.
func (c *CLI) writePin(cmd *cobra.Command, opts *pinOpts, request string) error {
	req, err := python.ParseRequest(request)
	if err != nil {
		return err
	}

	path := c.pinPath(opts)
	if existing, err := python.ReadVersionFile(path); err == nil {
		existing.Usable(c.rep)
	}

	findOptions := python.FindOptions{
		Request:       req,
		RequestSource: python.RequestFromUser,
		Preferences:   opts.preferences(c),
	}
	if !opts.global {
		rp, err := c.projectRequiresPython(c.discoverProject(&opts.discoveryOpts, opSettings), opSettings)
		if err != nil {
			return err
		}
		findOptions.RequiresPython = rp
	}
	if _, err := c.find(cmd.Context(), findOptions); err != nil {
		var nf *python.NotFoundError
		if !errors.As(err, &nf) {
			return err
		}
		c.rep.Warnf("%s", nf.Error())
	}

	previous, err := python.WriteVersionFile(path, req)
	if err != nil {
		return err
	}
	name := StyleHighlight.Render("`" + python.VersionFileName + "`")
	if previous != nil && previous.String() != req.String() {
		c.printResult("Updated %s from `%s` -> `%s`", name, previous, req)
		return nil
	}
	c.printResult("Pinned %s to `%s`", name, req)
	return nil
}

// pinPath returns where a pin is written: the config directory for
// --global, the project root, or the working directory.
func (c *CLI) pinPath(opts *pinOpts) string {
	if opts.global {
		return filepath.Join(c.settings.ConfigDir, python.VersionFileName)
	}
	if proj := c.discoverProject(&opts.discoveryOpts, opSettings); proj != nil {
		return filepath.Join(proj.Root, python.VersionFileName)
	}
	return filepath.Join(c.workDir, python.VersionFileName)
}

func isNotExist(err error) bool { return errors.Is(err, fs.ErrNotExist) }
