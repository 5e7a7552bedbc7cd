package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	pyerrors "github.com/matzehuels/pyseek/pkg/errors"
	"github.com/matzehuels/pyseek/pkg/python"
)

// Output formats for the list command.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// listOpts holds the command-line flags for the list command.
type listOpts struct {
	discoveryOpts
	format string
}

// listEntry is the serialized form of one interpreter.
type listEntry struct {
	Key            string `json:"key" yaml:"key"`
	Version        string `json:"version" yaml:"version"`
	Implementation string `json:"implementation" yaml:"implementation"`
	Path           string `json:"path" yaml:"path"`
	Source         string `json:"source" yaml:"source"`
	VirtualEnv     bool   `json:"virtual_env" yaml:"virtual_env"`
}

func newListEntry(interp *python.Interpreter) listEntry {
	return listEntry{
		Key:            interp.Key(),
		Version:        interp.Version.String(),
		Implementation: string(interp.Implementation),
		Path:           interp.Executable,
		Source:         interp.Source.String(),
		VirtualEnv:     interp.IsVirtualEnv(),
	}
}

// listCommand creates the list command.
func (c *CLI) listCommand() *cobra.Command {
	opts := listOpts{format: formatText}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List discoverable Python interpreters",
		Long: `List every interpreter found in virtual environments, managed
installations and the search path, in discovery order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runList(cmd, &opts)
		},
	}

	opts.registerPreferences(cmd)
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: text, json or yaml")

	return cmd
}

func (c *CLI) runList(cmd *cobra.Command, opts *listOpts) error {
	switch opts.format {
	case formatText, formatJSON, formatYAML:
	default:
		return pyerrors.New(pyerrors.ErrCodeInvalidInput, "Unknown output format `%s` (expected text, json or yaml)", opts.format)
	}

	finder, closeCache := c.newFinder(cmd.Context())
	defer closeCache()
	interps, err := finder.All(cmd.Context(), opts.preferences(c))
	if err != nil {
		return err
	}

	entries := make([]listEntry, 0, len(interps))
	for _, interp := range interps {
		entries = append(entries, newListEntry(interp))
	}

	switch opts.format {
	case formatJSON:
		enc := json.NewEncoder(c.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case formatYAML:
		enc := yaml.NewEncoder(c.Out)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}

	width := 0
	for _, e := range entries {
		width = max(width, len(e.Key))
	}
	for _, e := range entries {
		c.printKeyValue(e.Key, e.Path, width)
	}
	return nil
}
