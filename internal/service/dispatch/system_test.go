package dispatch

import (
	"context"
	"os/exec"
	"runtime"
	"testing"

	"github.com/mcpagent/mcpagent/internal/model"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMeminfo = `MemTotal:       16318480 kB
MemFree:         1203344 kB
MemAvailable:    9163732 kB
Buffers:          601112 kB
Cached:          7005940 kB
SwapCached:            0 kB
Active:          6260420 kB
Inactive:        6995316 kB
Active(anon):    4023904 kB
Inactive(anon):   109300 kB
Active(file):    2236516 kB
HugePages_Total:       0
`

func TestParseMeminfo(t *testing.T) {
	got := parseMeminfo([]byte(sampleMeminfo), meminfoLines)
	assert.Len(t, got, meminfoLines)
	assert.Equal(t, map[string]string{"value": "16318480", "unit": "kB"}, got["MemTotal"])
	assert.Equal(t, map[string]string{"value": "109300", "unit": "kB"}, got["Inactive(anon)"])
	assert.NotContains(t, got, "Active(file)")

	unitless := parseMeminfo([]byte("HugePages_Total:       0\n"), meminfoLines)
	assert.Equal(t, map[string]string{"value": "0", "unit": "kB"}, unitless["HugePages_Total"])
}

func TestMemoryInfoFromMeminfo(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.hostFs = afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(d.hostFs, meminfoPath, []byte(sampleMeminfo), 0o444))

	res := d.Execute(context.Background(), "system_get_memory_info", nil)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "meminfo", res.Payload["source"])
	assert.Equal(t, map[string]string{"value": "1203344", "unit": "kB"}, res.Payload["MemFree"])
}

func TestMemoryInfoFallsBackToFree(t *testing.T) {
	d, _ := newTestDispatcher(t)

	res := d.Execute(context.Background(), "system_get_memory_info", nil)
	if _, err := exec.LookPath("free"); err != nil {
		assert.False(t, res.Success)
		assert.NotEmpty(t, res.Error)
		return
	}
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "free", res.Payload["source"])
	assert.NotEmpty(t, res.Payload["raw"])
	assert.NotContains(t, res.Payload, "MemTotal")
}

func TestSystemInfo(t *testing.T) {
	d, _ := newTestDispatcher(t)

	res := d.Execute(context.Background(), "system_get_info", nil)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, runtime.GOOS, res.Payload["platform"])
	assert.Equal(t, runtime.GOARCH, res.Payload["arch"])
	assert.Equal(t, "/home/user", res.Payload["homeDir"])
	assert.Equal(t, false, res.Payload["termux"])
	assert.Equal(t, map[string]string{"LANG": "C.UTF-8", "PATH": "/usr/bin"}, res.Payload["env"])
}

func TestFilterProcesses(t *testing.T) {
	listing := "USER PID COMMAND\nroot 1 /sbin/init\nuser 42 node server.js\nuser 43 sshd"

	assert.Equal(t, listing, filterProcesses(listing, ""))
	assert.Equal(t, "USER PID COMMAND\nuser 42 node server.js", filterProcesses(listing, "node"))
	assert.Equal(t, "USER PID COMMAND", filterProcesses(listing, "nothing-matches"))
}

func TestListProcessesAndDiskUsage(t *testing.T) {
	d, _ := newShellDispatcher(t)

	res := d.Execute(context.Background(), "system_list_processes", map[string]any{"filter": "zzz-not-a-process"})
	if !res.Success {
		t.Skipf("ps not available: %s", res.Error)
	}
	assert.Equal(t, "zzz-not-a-process", res.Payload["filter"])
	assert.NotContains(t, res.Payload["processes"], "\n")

	res = d.Execute(context.Background(), "system_get_disk_usage", nil)
	if !res.Success {
		t.Skipf("df not available: %s", res.Error)
	}
	assert.Equal(t, model.Payload{"path": "/", "output": res.Payload["output"]}, res.Payload)
	assert.NotEmpty(t, res.Payload["output"])
}

func TestDiskUsagePathIsNotAFlag(t *testing.T) {
	if _, err := exec.LookPath("df"); err != nil {
		t.Skip("df not available")
	}
	d, _ := newShellDispatcher(t)

	res := d.Execute(context.Background(), "system_get_disk_usage", map[string]any{"path": "--version"})
	assert.False(t, res.Success, "a path starting with dashes must not be parsed as a df option")
}
