package python

import (
	"os"
	"path/filepath"
	"testing"

	pyerrors "github.com/matzehuels/pyseek/pkg/errors"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		in   string
		kind RequestKind
		want string
	}{
		{"", RequestAny, "any"},
		{"any", RequestAny, "any"},
		{"default", RequestDefault, "default"},
		{"3", RequestVersion, "3"},
		{"3.12", RequestVersion, "3.12"},
		{"3.12.1", RequestVersion, "3.12.1"},
		{"3.13rc1", RequestVersion, "3.13rc1"},
		{"3.13t", RequestVersion, "3.13t"},
		{"3.13+freethreaded", RequestVersion, "3.13t"},
		{"312", RequestVersion, "3.12"},
		{">=3.11, <3.13", RequestVersion, ">=3.11, <3.13"},
		{">=3.11,<3.13", RequestVersion, ">=3.11, <3.13"},
		{"python3.12", RequestVersion, "3.12"},
		{"cpython", RequestImplementation, "cpython"},
		{"cp", RequestImplementation, "cpython"},
		{"PyPy", RequestImplementation, "pypy"},
		{"cp312", RequestImplementationVersion, "cpython@3.12"},
		{"cpython3.12", RequestImplementationVersion, "cpython@3.12"},
		{"pypy@3.10", RequestImplementationVersion, "pypy@3.10"},
		{"graalpy@>=24", RequestImplementationVersion, "graalpy@>=24"},
		{"cpython-3.12-linux-x86_64", RequestKey, "cpython-3.12-linux-x86_64"},
		{"cpython-3.12-darwin-arm64", RequestKey, "cpython-3.12-macos-aarch64"},
		{"any-3.12-any", RequestKey, "any-3.12"},
		{"cpython-3.13t-linux-x86_64-gnu", RequestKey, "cpython-3.13t-linux-x86_64-gnu"},
		{"foo", RequestExecutableName, "foo"},
		{"my-python", RequestExecutableName, "my-python"},
		{"python3.12-dbg", RequestExecutableName, "python3.12-dbg"},
		{"python3-config", RequestExecutableName, "python3-config"},
		{"pypy3-c", RequestExecutableName, "pypy3-c"},
		{"3abc", RequestExecutableName, "3abc"},
		{"3.12.1.dev0", RequestExecutableName, "3.12.1.dev0"},
		{"./bin/python", RequestFile, "./bin/python"},
		{"/opt/cpython-3.12/bin/python", RequestFile, "/opt/cpython-3.12/bin/python"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			req, err := ParseRequest(tt.in)
			if err != nil {
				t.Fatalf("ParseRequest(%q) error: %v", tt.in, err)
			}
			if req.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", req.Kind, tt.kind)
			}
			if got := req.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseRequestRoundTrip(t *testing.T) {
	for _, in := range []string{"3.7", "3.12", "3.12.4", "3.13t", "3.14.0b2", "cpython@3.11", "pypy", "any-3.12"} {
		first := mustRequest(t, in)
		second := mustRequest(t, first.String())
		if first.String() != second.String() || first.Kind != second.Kind {
			t.Errorf("%q: round trip gave %q (%v), want %q (%v)", in, second, second.Kind, first, first.Kind)
		}
	}
}

func TestParseRequestDirectory(t *testing.T) {
	dir := t.TempDir()
	req := mustRequest(t, dir)
	if req.Kind != RequestDirectory {
		t.Errorf("Kind = %v, want RequestDirectory", req.Kind)
	}
	req = mustRequest(t, filepath.Join(dir, "missing"))
	if req.Kind != RequestFile {
		t.Errorf("Kind = %v, want RequestFile", req.Kind)
	}
}

func TestParseRequestErrors(t *testing.T) {
	tests := []struct {
		in   string
		code pyerrors.Code
		msg  string
	}{
		{"3.6", pyerrors.ErrCodeUnsupportedVersion, "Invalid version request: Python <3.7 is not supported but 3.6 was requested."},
		{"2", pyerrors.ErrCodeUnsupportedVersion, "Invalid version request: Python <3.7 is not supported but 2 was requested."},
		{"3.12t", pyerrors.ErrCodeUnsupportedVersion, "Invalid version request: Python <3.13 does not support free-threading but 3.12t was requested."},
		{"cpython@3.6", pyerrors.ErrCodeUnsupportedVersion, "Invalid version request: Python <3.7 is not supported but 3.6 was requested."},
		{"3.12.1.1", pyerrors.ErrCodeRequestParse, ""},
		{"3.256", pyerrors.ErrCodeRequestParse, ""},
		{">=", pyerrors.ErrCodeRequestParse, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseRequest(tt.in)
			if err == nil {
				t.Fatalf("ParseRequest(%q) should fail", tt.in)
			}
			if got := pyerrors.GetCode(err); got != tt.code {
				t.Errorf("code = %v, want %v (%v)", got, tt.code, err)
			}
			if tt.msg != "" && err.Error() != tt.msg {
				t.Errorf("error = %q, want %q", err.Error(), tt.msg)
			}
		})
	}
}

func TestRequestDescription(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "Python"},
		{"3.12", "Python 3.12"},
		{">=3.11, <3.12", "Python >=3.11, <3.12"},
		{"pypy", "PyPy"},
		{"cpython@3.12", "CPython 3.12"},
		{"cpython-3.12-linux-x86_64", "CPython 3.12 (linux-x86_64)"},
		{"foo", "executable name `foo`"},
		{"./missing/python", "path `./missing/python`"},
	}
	for _, tt := range tests {
		if got := mustRequest(t, tt.in).Description(); got != tt.want {
			t.Errorf("Description(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRequestSatisfies(t *testing.T) {
	cpython312 := &Interpreter{Executable: "/usr/bin/python3.12", Version: MustParseVersion("3.12.4"), Implementation: CPython,
		Platform: Platform{OS: "linux", Arch: "x86_64", Libc: "gnu"}}
	cpython313t := &Interpreter{Executable: "/usr/bin/python3.13t", Version: MustParseVersion("3.13.0rc1"), Implementation: CPython,
		Platform: Platform{OS: "linux", Arch: "x86_64", Libc: "gnu"}, Variant: VariantFreethreaded}
	pypy := &Interpreter{Executable: "/usr/bin/pypy3", Version: MustParseVersion("3.10.14"), Implementation: PyPy,
		Platform: Platform{OS: "linux", Arch: "x86_64", Libc: "gnu"}}

	tests := []struct {
		req    string
		interp *Interpreter
		want   bool
	}{
		{"any", cpython313t, true},
		{"3.12", cpython312, true},
		{"3.12", cpython313t, false},
		{"3.13", cpython313t, false},
		{"3.13t", cpython313t, true},
		{"3.13t", cpython312, false},
		{">=3.13", cpython313t, false},
		{">=3.13t", cpython313t, true},
		{">=3.12", cpython312, true},
		{"3.13rc1t", cpython313t, true},
		{"3.12.4", cpython312, true},
		{"3.12.3", cpython312, false},
		{"pypy", pypy, true},
		{"pypy", cpython312, false},
		{"cpython@3.12", cpython312, true},
		{"pypy@3.10", pypy, true},
		{"cpython-3.12-linux-x86_64", cpython312, true},
		{"cpython-3.12-macos", cpython312, false},
		{"any-any-linux-x86_64-gnu", pypy, true},
		{"python3.12", cpython312, true},
		{"pypy3", pypy, true},
	}
	for _, tt := range tests {
		if got := mustRequest(t, tt.req).Satisfies(tt.interp); got != tt.want {
			t.Errorf("%q satisfied by %s = %v, want %v", tt.req, tt.interp.Describe(), got, tt.want)
		}
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandHome("~/bin/python"); got != filepath.Join(home, "bin", "python") {
		t.Errorf("expandHome = %q", got)
	}
	if got := expandHome("/abs"); got != "/abs" {
		t.Errorf("expandHome = %q", got)
	}
}
