package sandbox

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSandbox(t *testing.T) *Sandbox {
	t.Helper()
	s, err := New([]string{"/home/user", "/tmp"}, "/home/user/work")
	require.NoError(t, err)
	return s
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		roots     []string
		wantRoots []string
		wantErr   bool
	}{
		{
			name:      "cleans and deduplicates roots",
			roots:     []string{"/tmp/", "/tmp", "/home/user/./"},
			wantRoots: []string{"/tmp", "/home/user"},
		},
		{
			name:      "skips blank roots",
			roots:     []string{"", "  ", "/tmp"},
			wantRoots: []string{"/tmp"},
		},
		{
			name:    "no roots",
			roots:   nil,
			wantErr: true,
		},
		{
			name:    "relative root",
			roots:   []string{"tmp"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.roots, "/")
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRoots, s.Roots())
		})
	}
}

func TestResolveAllowed(t *testing.T) {
	s := newTestSandbox(t)

	tests := []struct {
		raw  string
		want string
	}{
		{"/tmp/t.txt", "/tmp/t.txt"},
		{"/tmp", "/tmp"},
		{"/tmp/", "/tmp"},
		{"/tmp/a/../b", "/tmp/b"},
		{"/tmp/./a//b", "/tmp/a/b"},
		{"/home/user", "/home/user"},
		{".", "/home/user/work"},
		{"notes.md", "/home/user/work/notes.md"},
		{"../other", "/home/user/other"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := s.Resolve(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDenied(t *testing.T) {
	s := newTestSandbox(t)

	tests := []struct {
		raw      string
		resolved string
	}{
		{"/etc/shadow", "/etc/shadow"},
		{"/tmpfoo", "/tmpfoo"},
		{"/tmp-other/x", "/tmp-other/x"},
		{"/tmp/../etc/passwd", "/etc/passwd"},
		{"../../../etc", "/etc"},
		{"/home/username", "/home/username"},
		{"/", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := s.Resolve(tt.raw)
			require.Error(t, err)
			assert.Empty(t, got)
			assert.True(t, errors.Is(err, ErrPathDenied))

			var denied *PathDeniedError
			require.ErrorAs(t, err, &denied)
			assert.Equal(t, tt.resolved, denied.Path)
			assert.Equal(t, "Path not allowed: "+tt.resolved, err.Error())
		})
	}
}

func TestResolveInvalidInput(t *testing.T) {
	s := newTestSandbox(t)

	for _, raw := range []string{"", "   ", "/tmp/a\x00b"} {
		_, err := s.Resolve(raw)
		assert.Error(t, err)
		assert.False(t, errors.Is(err, ErrPathDenied), "invalid input is not a denial: %q", raw)
	}
}

func TestRootSlashAllowsEverything(t *testing.T) {
	s, err := New([]string{"/"}, "/")
	require.NoError(t, err)

	got, err := s.Resolve("/etc/shadow")
	require.NoError(t, err)
	assert.Equal(t, "/etc/shadow", got)
}

func TestDefaultRoots(t *testing.T) {
	t.Run("from environment", func(t *testing.T) {
		env := map[string]string{
			"HOME":        "/home/alice",
			"TMPDIR":      "/var/tmp",
			"TERMUX_HOME": "/data/termux",
		}
		roots := DefaultRoots(func(k string) string { return env[k] })
		assert.Equal(t, []string{"/home/alice", "/var/tmp", "/tmp", "/data/termux"}, roots)
	})

	t.Run("fallbacks", func(t *testing.T) {
		roots := DefaultRoots(func(string) string { return "" })
		assert.Equal(t, []string{defaultHome, "/tmp", defaultTermuxHome}, roots)
	})
}

func TestRootsReturnsCopy(t *testing.T) {
	s := newTestSandbox(t)
	roots := s.Roots()
	roots[0] = "/"
	assert.Equal(t, "/home/user", s.Roots()[0])
}
