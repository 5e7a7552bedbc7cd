package python

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr string
	}{
		{in: "3.12.1", want: "3.12.1"},
		{in: "3.13.0rc2", want: "3.13.0rc2"},
		{in: "3.8.0.post1", want: "3.8.0.post1"},
		{in: "3.12.1.dev0", wantErr: "is a development release"},
		{in: "3.12.1+local", wantErr: "is a local version"},
		{in: "1!3.12", wantErr: "has a non-zero epoch"},
		{in: "3.256", wantErr: "has an invalid minor version (256)"},
		{in: "3.12.300", wantErr: "has an invalid patch version (300)"},
		{in: "three", wantErr: "could not be parsed"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := ParseVersion(tt.in)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("ParseVersion(%q) error = %v, want %q", tt.in, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseVersion(%q): %v", tt.in, err)
			}
			if v.String() != tt.want {
				t.Errorf("String() = %q, want %q", v, tt.want)
			}
		})
	}
}

func TestVersionProjections(t *testing.T) {
	v := MustParseVersion("3.12.0b1")
	if v.Major() != 3 || v.Minor() != 12 {
		t.Errorf("Major/Minor = %d/%d", v.Major(), v.Minor())
	}
	if patch, ok := v.Patch(); !ok || patch != 0 {
		t.Errorf("Patch() = %d, %v", patch, ok)
	}
	if got := v.PythonVersion().String(); got != "3.12" {
		t.Errorf("PythonVersion() = %q", got)
	}
	if got := v.PythonFullVersion().String(); got != "3.12.0b1" {
		t.Errorf("PythonFullVersion() = %q", got)
	}
	if got := v.WithoutPatch().String(); got != "3.12" {
		t.Errorf("WithoutPatch() = %q", got)
	}
	if _, ok := MustParseVersion("3.12").Patch(); ok {
		t.Error("3.12 should have no patch")
	}
	if got := MustParseVersion("3.12").PythonFullVersion().String(); got != "3.12.0" {
		t.Errorf("PythonFullVersion() = %q", got)
	}
}

func TestVersionMarkers(t *testing.T) {
	base := MarkerEnvironment{
		MarkerImplementationName:    "cpython",
		MarkerImplementationVersion: "3.11.2",
		MarkerPythonVersion:         "3.11",
		MarkerPythonFullVersion:     "3.11.2",
		"sys_platform":              "linux",
	}
	got := MustParseVersion("3.12.1").Markers(base)
	want := map[string]string{
		MarkerImplementationVersion: "3.12.1",
		MarkerPythonVersion:         "3.12",
		MarkerPythonFullVersion:     "3.12.1",
		"sys_platform":              "linux",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
	if base[MarkerPythonVersion] != "3.11" {
		t.Error("Markers must not modify its input")
	}

	pypy := MustParseVersion("3.10.14").Markers(MarkerEnvironment{
		MarkerImplementationName:    "pypy",
		MarkerImplementationVersion: "7.3.17",
	})
	if pypy[MarkerImplementationVersion] != "7.3.17" {
		t.Errorf("pypy implementation_version = %q", pypy[MarkerImplementationVersion])
	}
}

func TestInstallationKey(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{in: "cpython-3.12.1-linux-x86_64-gnu"},
		{in: "cpython-3.13.0+freethreaded-macos-aarch64-none"},
		{in: "pypy-3.10.14-linux-x86_64-gnu"},
		{in: "cpython-3.12.1-linux-x86_64", wantErr: true},
		{in: "jython-2.7.3-linux-x86_64-gnu", wantErr: true},
		{in: "cpython-3.13.0+debug-linux-x86_64-gnu", wantErr: true},
	}
	for _, tt := range tests {
		k, err := ParseInstallationKey(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseInstallationKey(%q) should fail", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseInstallationKey(%q): %v", tt.in, err)
			continue
		}
		if k.String() != tt.in {
			t.Errorf("String() = %q, want %q", k, tt.in)
		}
	}
}

func TestManagedRegistry(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"cpython-3.11.9-linux-x86_64-gnu",
		"cpython-3.12.4-linux-x86_64-gnu",
		"cpython-3.13.0+freethreaded-linux-x86_64-gnu",
		"cpython-3.13.0-linux-x86_64-gnu",
		"not-a-key",
		".lock",
	} {
		if err := os.MkdirAll(filepath.Join(dir, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "cpython-3.10.0-linux-x86_64-gnu"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	installs, err := ManagedRegistry{Dir: dir}.Installations()
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, inst := range installs {
		got = append(got, inst.Key.String())
	}
	want := []string{
		"cpython-3.13.0-linux-x86_64-gnu",
		"cpython-3.13.0+freethreaded-linux-x86_64-gnu",
		"cpython-3.12.4-linux-x86_64-gnu",
		"cpython-3.11.9-linux-x86_64-gnu",
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Installations() = %v, want %v", got, want)
	}

	missing, err := ManagedRegistry{Dir: filepath.Join(dir, "nope")}.Installations()
	if err != nil || len(missing) != 0 {
		t.Errorf("missing registry = %v, %v", missing, err)
	}
}

func TestRequestAllowsKey(t *testing.T) {
	key, _ := ParseInstallationKey("cpython-3.13.0+freethreaded-linux-x86_64-gnu")
	tests := []struct {
		req  string
		want bool
	}{
		{"any", true},
		{"3.13", false},
		{"3.13t", true},
		{"pypy", false},
		{"cpython", true},
		{"cpython-3.13t-linux", true},
		{"cpython-3.13t-macos", false},
	}
	for _, tt := range tests {
		if got := mustRequest(t, tt.req).allowsKey(key); got != tt.want {
			t.Errorf("%q allowsKey = %v, want %v", tt.req, got, tt.want)
		}
	}
}

func TestVenvConfig(t *testing.T) {
	root := t.TempDir()
	content := "home = /usr/local/bin\nimplementation = CPython\npyseek = 0.1.0\n# comment\nversion_info = 3.12.4\nrelocatable = true\nnot a pair\nprompt = a=b # c\n"
	if err := os.WriteFile(filepath.Join(root, VenvConfigName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := ReadVenvConfig(root)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Home() != "/usr/local/bin" {
		t.Errorf("Home() = %q", cfg.Home())
	}
	if !cfg.Relocatable() {
		t.Error("Relocatable() = false")
	}
	if v, ok := cfg.Get("pyseek"); !ok || v != "0.1.0" {
		t.Errorf("Get(pyseek) = %q, %v", v, ok)
	}
	if v, _ := cfg.Get("prompt"); v != "a=b # c" {
		t.Errorf("Get(prompt) = %q", v)
	}
	if got := strings.Join(cfg.Keys(), ","); got != "home,implementation,pyseek,version_info,relocatable,prompt" {
		t.Errorf("Keys() = %s", got)
	}
	if !IsVirtualEnvDir(root) || IsVirtualEnvDir(t.TempDir()) {
		t.Error("IsVirtualEnvDir mismatch")
	}
}
