package sysmon

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// VMStat is the page-level memory breakdown reported by the vm_stat
// tool, scaled to bytes. It approximates the categories Activity
// Monitor shows.
type VMStat struct {
	PageSize uint64

	Free       uint64
	Active     uint64
	Inactive   uint64
	Wired      uint64
	Compressed uint64
	FileBacked uint64
	Anonymous  uint64
	Purgeable  uint64
}

// AppBytes is anonymous memory minus the purgeable share, the number
// Activity Monitor labels "App Memory".
func (v VMStat) AppBytes() uint64 {
	if v.Purgeable > v.Anonymous {
		return 0
	}
	return v.Anonymous - v.Purgeable
}

// UsedBytes is app plus wired plus compressed memory, Activity
// Monitor's "Memory Used".
func (v VMStat) UsedBytes() uint64 {
	return v.AppBytes() + v.Wired + v.Compressed
}

// ReadVMStat runs vm_stat once and parses its output. It spawns a
// process and is therefore kept off the sampling tick path; the
// dashboard calls it on a slow cadence of its own.
func ReadVMStat(ctx context.Context) (VMStat, error) {
	out, err := exec.CommandContext(ctx, "vm_stat").Output()
	if err != nil {
		return VMStat{}, fmt.Errorf("run vm_stat: %w", err)
	}
	return ParseVMStat(string(out))
}

// ParseVMStat parses vm_stat output. The header carries the page size;
// every other line is a "label: count." pair counting pages.
func ParseVMStat(text string) (VMStat, error) {
	v := VMStat{}
	pages := make(map[string]uint64)

	for _, line := range strings.Split(text, "\n") {
		if rest, ok := strings.CutPrefix(line, "Mach Virtual Memory Statistics: (page size of "); ok {
			size, ok := strings.CutSuffix(rest, " bytes)")
			if !ok {
				continue
			}
			n, err := strconv.ParseUint(strings.TrimSpace(size), 10, 64)
			if err != nil {
				return VMStat{}, fmt.Errorf("parse page size %q: %w", size, err)
			}
			v.PageSize = n
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimSpace(val), "."), 10, 64)
		if err != nil {
			continue
		}
		pages[strings.TrimSpace(key)] = n
	}

	if v.PageSize == 0 {
		return VMStat{}, fmt.Errorf("vm_stat output carries no page size")
	}

	v.Free = pages["Pages free"] * v.PageSize
	v.Active = pages["Pages active"] * v.PageSize
	v.Inactive = pages["Pages inactive"] * v.PageSize
	v.Wired = pages["Pages wired down"] * v.PageSize
	v.Compressed = pages["Pages stored in compressor"] * v.PageSize
	v.FileBacked = pages["File-backed pages"] * v.PageSize
	v.Anonymous = pages["Anonymous pages"] * v.PageSize
	v.Purgeable = pages["Pages purgeable"] * v.PageSize
	return v, nil
}
