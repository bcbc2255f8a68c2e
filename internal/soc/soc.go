// Package soc identifies the Apple Silicon package the process runs
// on: brand name, core topology and the per-domain power envelope used
// to scale gauges.
package soc

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// Info describes the SoC. It never changes while the process lives.
type Info struct {
	BrandName        string `json:"brand"`
	CPUCores         int    `json:"cpu_cores"`
	EfficiencyCores  int    `json:"e_cores"`
	PerformanceCores int    `json:"p_cores"`
	GPUCores         int    `json:"gpu_cores"`

	// Power envelope per domain, in watts. Best effort: the values
	// come from a static per-chip table, not from the hardware.
	MaxCPUW     float64 `json:"max_cpu_w"`
	MaxGPUW     float64 `json:"max_gpu_w"`
	MaxANEW     float64 `json:"max_ane_w"`
	MaxPackageW float64 `json:"max_package_w"`

	Hostname  string `json:"hostname,omitempty"`
	OSVersion string `json:"os_version,omitempty"`
}

// Runner executes an external command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Loader queries the SoC description. The zero value runs the real
// sysctl and system_profiler binaries; tests inject a Runner.
type Loader struct {
	Run Runner
}

// Load queries the OS once and returns the assembled description.
// Repeated calls return equal values. Failure of either topology query
// is fatal; hostname and OS version are cosmetic and default to empty.
func (l Loader) Load(ctx context.Context) (*Info, error) {
	run := l.Run
	if run == nil {
		run = execRunner
	}

	out, err := run(ctx, "/usr/sbin/sysctl",
		"-n",
		"machdep.cpu.brand_string",
		"machdep.cpu.core_count",
		"hw.perflevel0.logicalcpu",
		"hw.perflevel1.logicalcpu",
	)
	if err != nil {
		return nil, fmt.Errorf("query cpu topology: %w", err)
	}
	info, err := parseCPUInfo(string(out))
	if err != nil {
		return nil, err
	}

	out, err = run(ctx, "/usr/sbin/system_profiler", "-detailLevel", "basic", "SPDisplaysDataType")
	if err != nil {
		return nil, fmt.Errorf("query gpu cores: %w", err)
	}
	info.GPUCores, err = parseGPUCores(string(out))
	if err != nil {
		return nil, err
	}

	info.MaxCPUW, info.MaxGPUW, info.MaxANEW = powerEnvelope(info.BrandName)
	info.MaxPackageW = info.MaxCPUW + info.MaxGPUW + info.MaxANEW

	// Cosmetic facts for the dashboard; ignore failures.
	if hi, err := host.InfoWithContext(ctx); err == nil {
		info.Hostname = hi.Hostname
		info.OSVersion = hi.PlatformVersion
	}

	return info, nil
}

// parseCPUInfo parses the four sysctl -n output lines: brand string,
// core count, performance core count (perflevel0), efficiency core
// count (perflevel1).
func parseCPUInfo(out string) (*Info, error) {
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) < 4 {
		return nil, fmt.Errorf("unexpected sysctl output %q", out)
	}

	info := &Info{BrandName: strings.TrimSpace(lines[0])}
	if info.BrandName == "" {
		return nil, fmt.Errorf("sysctl returned an empty brand string")
	}

	for i, dst := range []*int{&info.CPUCores, &info.PerformanceCores, &info.EfficiencyCores} {
		n, err := strconv.Atoi(strings.TrimSpace(lines[i+1]))
		if err != nil {
			return nil, fmt.Errorf("parse sysctl line %q: %w", lines[i+1], err)
		}
		*dst = n
	}
	return info, nil
}

// parseGPUCores extracts the core count from system_profiler display
// output.
func parseGPUCores(out string) (int, error) {
	for _, line := range strings.Split(out, "\n") {
		_, val, ok := strings.Cut(line, "Total Number of Cores:")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("parse gpu core count %q: %w", val, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("system_profiler reported no gpu core count")
}

// powerEnvelope returns the max CPU, GPU and ANE watts for a chip.
// Unknown chips get the conservative M1 numbers so gauges stay usable.
func powerEnvelope(brand string) (cpuW, gpuW, aneW float64) {
	switch brand {
	case "Apple M1":
		return 20, 20, 8
	case "Apple M1 Pro":
		return 30, 30, 8
	case "Apple M1 Max":
		return 30, 60, 8
	case "Apple M1 Ultra":
		return 60, 120, 8
	case "Apple M2":
		return 25, 15, 8
	case "Apple M2 Pro":
		return 30, 35, 8
	case "Apple M2 Max":
		return 35, 55, 8
	default:
		return 20, 20, 8
	}
}
