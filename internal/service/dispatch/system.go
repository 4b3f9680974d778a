package dispatch

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/mcpagent/mcpagent/internal/model"
	"github.com/mcpagent/mcpagent/internal/service/executor"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	meminfoPath = "/proc/meminfo"
	// meminfoLines is how many leading /proc/meminfo entries are reported.
	meminfoLines = 10

	introspectionTimeout = 10 * time.Second
)

func (d *Dispatcher) systemInfo(_ context.Context, _ Params) (model.Payload, error) {
	hostname, _ := os.Hostname()
	pwd, _ := os.Getwd()
	return model.Payload{
		"platform":  runtime.GOOS,
		"arch":      runtime.GOARCH,
		"goVersion": runtime.Version(),
		"hostname":  hostname,
		"numCPU":    runtime.NumCPU(),
		"homeDir":   d.getenv("HOME"),
		"termux":    d.getenv("TERMUX_HOME") != "",
		"pwd":       pwd,
		"env": map[string]string{
			"LANG": d.getenv("LANG"),
			"PATH": d.getenv("PATH"),
		},
	}, nil
}

// memoryInfo prefers the structured /proc/meminfo and falls back to the raw output of free -h.
func (d *Dispatcher) memoryInfo(ctx context.Context, _ Params) (model.Payload, error) {
	data, err := afero.ReadFile(d.hostFs, meminfoPath)
	if err == nil {
		if payload := parseMeminfo(data, meminfoLines); len(payload) > 0 {
			payload["source"] = "meminfo"
			return payload, nil
		}
	} else {
		d.logger.Debug("meminfo not available, falling back to free", zap.Error(err))
	}

	out, err := d.runner.Run(ctx, executor.Spec{
		Argv:    []string{"free", "-h"},
		Timeout: introspectionTimeout,
	})
	if err != nil {
		return nil, err
	}
	return model.Payload{
		"raw":    strings.TrimSpace(out.Stdout),
		"source": "free",
	}, nil
}

// parseMeminfo turns lines such as "MemTotal:  16318480 kB" into {"MemTotal": {"value": "16318480", "unit": "kB"}}.
func parseMeminfo(data []byte, limit int) model.Payload {
	payload := model.Payload{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for n := 0; n < limit && scanner.Scan(); n++ {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		unit := "kB"
		if len(fields) > 2 {
			unit = fields[2]
		}
		payload[strings.TrimSuffix(fields[0], ":")] = map[string]string{
			"value": fields[1],
			"unit":  unit,
		}
	}
	return payload
}

func (d *Dispatcher) diskUsage(ctx context.Context, p Params) (model.Payload, error) {
	path := p.String("path", "/")
	out, err := d.runner.Run(ctx, executor.Spec{
		Argv:    []string{"df", "-h", "--", path},
		Timeout: introspectionTimeout,
	})
	if err != nil {
		return nil, err
	}
	return model.Payload{
		"path":   path,
		"output": strings.TrimSpace(out.Stdout),
	}, nil
}

func (d *Dispatcher) listProcesses(ctx context.Context, p Params) (model.Payload, error) {
	argv := []string{"ps", "aux"}
	if runtime.GOOS == "windows" {
		argv = []string{"tasklist"}
	}
	out, err := d.runner.Run(ctx, executor.Spec{Argv: argv, Timeout: introspectionTimeout})
	if err != nil {
		return nil, err
	}

	filter := p.String("filter", "")
	payload := model.Payload{
		"processes": filterProcesses(strings.TrimSpace(out.Stdout), filter),
	}
	if filter != "" {
		payload["filter"] = filter
	}
	return payload, nil
}

// filterProcesses keeps the header line and every line containing filter.
func filterProcesses(listing, filter string) string {
	if filter == "" {
		return listing
	}
	lines := strings.Split(listing, "\n")
	kept := []string{lines[0]}
	for _, line := range lines[1:] {
		if strings.Contains(line, filter) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
