package cli

import (
	"github.com/spf13/cobra"
)

// findOpts holds the command-line flags for the find command.
type findOpts struct {
	discoveryOpts
	showVersion bool // print the version instead of the path
}

// findCommand creates the find command.
func (c *CLI) findCommand() *cobra.Command {
	var opts findOpts

	cmd := &cobra.Command{
		Use:   "find [REQUEST]",
		Short: "Find a Python interpreter",
		Long: `Find a Python interpreter and print its path.

Without a request, the nearest .python-version pin is used, then any
interpreter compatible with the project's requires-python.

Examples:
  pyseek find                  # pinned or default interpreter
  pyseek find 3.12             # any Python 3.12
  pyseek find pypy@3.10        # PyPy 3.10
  pyseek find ./venv           # the interpreter of a directory
  pyseek find --script app.py  # the interpreter for a script`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var request string
			if len(args) == 1 {
				request = args[0]
			}
			return c.runFind(cmd, &opts, request)
		},
	}

	opts.register(cmd, true)
	cmd.ValidArgsFunction = completeRequest
	cmd.Flags().BoolVar(&opts.showVersion, "show-version", false, "print the interpreter version instead of its path")

	return cmd
}

func (c *CLI) runFind(cmd *cobra.Command, opts *findOpts, request string) error {
	ctx := cmd.Context()
	findOptions, err := c.findOptions(&opts.discoveryOpts, request, opDiscovery)
	if err != nil {
		return err
	}
	interp, err := c.find(ctx, findOptions)
	if err != nil {
		return err
	}
	if opts.showVersion {
		c.printResult("%s", interp.Version)
		return nil
	}
	c.printResult("%s", interp.Executable)
	return nil
}
