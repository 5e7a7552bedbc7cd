package python

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
)

// VenvConfigName is the marker file of a virtual environment.
const VenvConfigName = "pyvenv.cfg"

// VenvConfig is a parsed pyvenv.cfg. Keys keep their file order.
type VenvConfig struct {
	Path   string
	keys   []string
	values map[string]string
}

// ReadVenvConfig reads root/pyvenv.cfg. A missing file returns an error
// satisfying errors.Is(err, fs.ErrNotExist).
func ReadVenvConfig(root string) (*VenvConfig, error) {
	path := filepath.Join(root, VenvConfigName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// pyvenv.cfg has no section header and values are taken verbatim.
	file, err := ini.LoadSources(ini.LoadOptions{
		KeyValueDelimiters:      "=",
		IgnoreContinuation:      true,
		IgnoreInlineComment:     true,
		PreserveSurroundedQuote: true,
		SkipUnrecognizableLines: true,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg := &VenvConfig{Path: path, values: make(map[string]string)}
	for _, key := range file.Section(ini.DefaultSection).Keys() {
		cfg.keys = append(cfg.keys, key.Name())
		cfg.values[key.Name()] = key.Value()
	}
	return cfg, nil
}

// Get returns the value recorded for key.
func (c *VenvConfig) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Keys returns the keys in file order.
func (c *VenvConfig) Keys() []string { return append([]string(nil), c.keys...) }

// Home is the directory of the base interpreter.
func (c *VenvConfig) Home() string { return c.values["home"] }

// Relocatable reports whether the environment was built relocatable.
func (c *VenvConfig) Relocatable() bool {
	return strings.EqualFold(c.values["relocatable"], "true")
}

// IsVirtualEnvDir reports whether root contains a pyvenv.cfg.
func IsVirtualEnvDir(root string) bool {
	_, err := os.Stat(filepath.Join(root, VenvConfigName))
	return err == nil
}

// isMissing reports whether err means the file does not exist.
func isMissing(err error) bool { return errors.Is(err, fs.ErrNotExist) }
