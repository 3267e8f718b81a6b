package standard

import (
	"fmt"
	"strings"

	"github.com/ccheshirecat/safepaw/internal/vm"
)

const (
	mib = 1024 * 1024
	gib = 1024 * mib
)

// FormatSummary renders a list entry as "name | state[ | ipv4,...][ | release]".
func FormatSummary(s vm.Summary) string {
	parts := []string{s.Name, s.State}
	if len(s.IPv4) > 0 {
		parts = append(parts, strings.Join(s.IPv4, ","))
	}
	if s.Release != nil {
		parts = append(parts, *s.Release)
	}
	return strings.Join(parts, " | ")
}

// FormatStatus renders one line per reported field, in a fixed order.
func FormatStatus(s vm.Status) []string {
	lines := []string{
		fmt.Sprintf("Name:  %s", s.Name),
		fmt.Sprintf("State: %s", s.State),
	}
	if len(s.IPv4) > 0 {
		lines = append(lines, fmt.Sprintf("IPv4:  %s", strings.Join(s.IPv4, ", ")))
	}
	if s.Release != nil {
		lines = append(lines, fmt.Sprintf("Release: %s", *s.Release))
	}
	if s.ImageRelease != nil {
		lines = append(lines, fmt.Sprintf("Image:   %s", *s.ImageRelease))
	}
	if s.CPUCount != nil {
		lines = append(lines, fmt.Sprintf("CPUs:  %s", *s.CPUCount))
	}
	if s.MemoryTotal != nil && s.MemoryUsed != nil {
		total, used := *s.MemoryTotal, *s.MemoryUsed
		lines = append(lines, fmt.Sprintf("Memory: %d MiB / %d MiB (%d%%)", used/mib, total/mib, percent(used, total)))
	}
	if s.DiskTotal != nil && s.DiskUsed != nil {
		total, used := *s.DiskTotal, *s.DiskUsed
		lines = append(lines, fmt.Sprintf("Disk:   %d GiB / %d GiB (%d%%)", used/gib, total/gib, percent(used, total)))
	}
	return lines
}

// percent truncates used/total*100; a zero total reports 0.
func percent(used, total uint64) uint64 {
	if total == 0 {
		return 0
	}
	return uint64(float64(used) / float64(total) * 100)
}
