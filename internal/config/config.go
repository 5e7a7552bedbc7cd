// Package config loads pyseek's settings from the environment and an
// optional pyseek.toml.
//
// Every setting has a PYSEEK_-prefixed environment variable whose suffix is
// the config-file key with dashes replaced by underscores, so
// PYSEEK_PYTHON_INSTALL_DIR and
//
//	python-install-dir = "/opt/pythons"
//
// name the same setting. The environment wins over the file. A handful of
// ecosystem variables (VIRTUAL_ENV, CONDA_PREFIX, PATH) are read under their
// usual names. Nothing else in pyseek consults the environment; the
// resulting [Settings] are passed down explicitly.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	pyerrors "github.com/matzehuels/pyseek/pkg/errors"
)

// FileName is the name of the optional config file in the config directory.
const FileName = "pyseek.toml"

const appName = "pyseek"

// Config keys.
const (
	KeyVirtualEnv         = "virtual-env"
	KeyCondaPrefix        = "conda-prefix"
	KeyPath               = "path"
	KeyTestPythonPath     = "test-python-path"
	KeySystemPython       = "system-python"
	KeyManagedPython      = "managed-python"
	KeyNoManagedPython    = "no-managed-python"
	KeyProjectEnvironment = "project-environment"
	KeyPythonInstallDir   = "python-install-dir"
	KeyCacheDir           = "cache-dir"
	KeyConfigDir          = "config-dir"
	KeyNoConfig           = "no-config"
	KeyCacheURL           = "cache-url"
	KeyProbeTimeout       = "probe-timeout"
	KeyParallelProbes     = "parallel-probes"
	KeyDownloadsJSON      = "downloads-json"
)

// Defaults.
const (
	DefaultProjectEnvironment = ".venv"
	DefaultProbeTimeout       = 10 * time.Second
	DefaultParallelProbes     = 4
)

// Settings is the resolved configuration.
type Settings struct {
	VirtualEnv  string
	CondaPrefix string

	// SearchPath is PATH split into directories, or PYSEEK_TEST_PYTHON_PATH
	// when that is set.
	SearchPath []string

	SystemPython    bool
	ManagedPython   bool
	NoManagedPython bool

	ProjectEnvironment string
	PythonInstallDir   string
	CacheDir           string
	ConfigDir          string
	CacheURL           string
	DownloadsJSON      string
	ProbeTimeout       time.Duration
	ParallelProbes     int

	// ConfigFile is the config file that was read, if any.
	ConfigFile string
}

// Options control loading.
type Options struct {
	// NoConfig skips the config file, as does PYSEEK_NO_CONFIG.
	NoConfig bool
}

// Load resolves settings from the environment and the config file.
func Load(opts Options) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("PYSEEK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, env := range map[string]string{
		KeyVirtualEnv:  "VIRTUAL_ENV",
		KeyCondaPrefix: "CONDA_PREFIX",
		KeyPath:        "PATH",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, pyerrors.Wrap(pyerrors.ErrCodeInternal, err, "Failed to bind `%s`", env)
		}
	}

	v.SetDefault(KeyProjectEnvironment, DefaultProjectEnvironment)
	v.SetDefault(KeyProbeTimeout, DefaultProbeTimeout)
	v.SetDefault(KeyParallelProbes, DefaultParallelProbes)
	v.SetDefault(KeyCacheDir, xdgDir("XDG_CACHE_HOME", ".cache"))
	v.SetDefault(KeyPythonInstallDir, filepath.Join(xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share")), "python"))
	v.SetDefault(KeyConfigDir, xdgDir("XDG_CONFIG_HOME", ".config"))

	s := &Settings{ConfigDir: v.GetString(KeyConfigDir)}
	if !opts.NoConfig && !v.GetBool(KeyNoConfig) {
		path := filepath.Join(s.ConfigDir, FileName)
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("toml")
			if err := v.ReadInConfig(); err != nil {
				return nil, pyerrors.Wrap(pyerrors.ErrCodeConfigParse, err, "Failed to parse `%s`", path)
			}
			s.ConfigFile = path
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, pyerrors.Wrap(pyerrors.ErrCodeConfigParse, err, "Failed to read `%s`", path)
		}
	}

	s.VirtualEnv = v.GetString(KeyVirtualEnv)
	s.CondaPrefix = v.GetString(KeyCondaPrefix)
	s.SearchPath = splitPath(v.GetString(KeyPath))
	if p := v.GetString(KeyTestPythonPath); p != "" {
		s.SearchPath = splitPath(p)
	}
	s.SystemPython = v.GetBool(KeySystemPython)
	s.ManagedPython = v.GetBool(KeyManagedPython)
	s.NoManagedPython = v.GetBool(KeyNoManagedPython)
	s.ProjectEnvironment = v.GetString(KeyProjectEnvironment)
	s.PythonInstallDir = v.GetString(KeyPythonInstallDir)
	s.CacheDir = v.GetString(KeyCacheDir)
	s.CacheURL = v.GetString(KeyCacheURL)
	s.DownloadsJSON = v.GetString(KeyDownloadsJSON)
	s.ProbeTimeout = v.GetDuration(KeyProbeTimeout)
	s.ParallelProbes = v.GetInt(KeyParallelProbes)

	if s.ManagedPython && s.NoManagedPython {
		return nil, pyerrors.New(pyerrors.ErrCodeInvalidInput,
			"`%s` and `%s` cannot both be enabled", KeyManagedPython, KeyNoManagedPython)
	}
	if err := pyerrors.ValidateEnvironmentName(s.ProjectEnvironment); err != nil {
		return nil, pyerrors.Wrap(pyerrors.ErrCodeInvalidInput, err, "Invalid `%s` setting", KeyProjectEnvironment)
	}
	if s.ProbeTimeout <= 0 {
		s.ProbeTimeout = DefaultProbeTimeout
	}
	return s, nil
}

// xdgDir returns $env/pyseek, falling back to ~/fallback/pyseek.
func xdgDir(env, fallback string) string {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName)
	}
	return filepath.Join(home, fallback, appName)
}

func splitPath(s string) []string {
	var out []string
	for _, dir := range filepath.SplitList(s) {
		if dir != "" {
			out = append(out, dir)
		}
	}
	return out
}
