package httpapi

import "github.com/ccheshirecat/safepaw/internal/vm"

// vmResponse is the wire form of vm.Status; list entries fill only the
// summary fields. Unreported fields are omitted rather than sent as null.
type vmResponse struct {
	Name         string   `json:"name"`
	State        string   `json:"state"`
	IPv4         []string `json:"ipv4,omitempty"`
	Release      *string  `json:"release,omitempty"`
	ImageRelease *string  `json:"image_release,omitempty"`
	CPUCount     *string  `json:"cpu_count,omitempty"`
	MemoryTotal  *uint64  `json:"memory_total,omitempty"`
	MemoryUsed   *uint64  `json:"memory_used,omitempty"`
	DiskTotal    *uint64  `json:"disk_total,omitempty"`
	DiskUsed     *uint64  `json:"disk_used,omitempty"`
}

func statusToResponse(s vm.Status) vmResponse {
	return vmResponse{
		Name:         s.Name,
		State:        s.State,
		IPv4:         s.IPv4,
		Release:      s.Release,
		ImageRelease: s.ImageRelease,
		CPUCount:     s.CPUCount,
		MemoryTotal:  s.MemoryTotal,
		MemoryUsed:   s.MemoryUsed,
		DiskTotal:    s.DiskTotal,
		DiskUsed:     s.DiskUsed,
	}
}

func summaryToResponse(s vm.Summary) vmResponse {
	return vmResponse{
		Name:    s.Name,
		State:   s.State,
		IPv4:    s.IPv4,
		Release: s.Release,
	}
}
