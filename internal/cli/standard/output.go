package standard

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ccheshirecat/safepaw/internal/vm"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

// vmView is the structured form printed by --output json|yaml.
type vmView struct {
	Name         string   `json:"name" yaml:"name"`
	State        string   `json:"state" yaml:"state"`
	IPv4         []string `json:"ipv4,omitempty" yaml:"ipv4,omitempty"`
	Release      *string  `json:"release,omitempty" yaml:"release,omitempty"`
	ImageRelease *string  `json:"image_release,omitempty" yaml:"image_release,omitempty"`
	CPUCount     *string  `json:"cpu_count,omitempty" yaml:"cpu_count,omitempty"`
	MemoryTotal  *uint64  `json:"memory_total,omitempty" yaml:"memory_total,omitempty"`
	MemoryUsed   *uint64  `json:"memory_used,omitempty" yaml:"memory_used,omitempty"`
	DiskTotal    *uint64  `json:"disk_total,omitempty" yaml:"disk_total,omitempty"`
	DiskUsed     *uint64  `json:"disk_used,omitempty" yaml:"disk_used,omitempty"`
}

func statusView(s vm.Status) vmView {
	return vmView{
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

func summaryView(s vm.Summary) vmView {
	return vmView{Name: s.Name, State: s.State, IPv4: s.IPv4, Release: s.Release}
}

func parseOutputFormat(raw string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(raw)); f {
	case "", outputText:
		return outputText, nil
	case outputJSON, outputYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want text, json or yaml)", raw)
	}
}

func encodeAsJSON(out io.Writer, payload any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func encodeAsYAML(out io.Writer, payload any) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(payload); err != nil {
		return err
	}
	return enc.Close()
}

func encodeStructured(out io.Writer, format string, payload any) error {
	if format == outputYAML {
		return encodeAsYAML(out, payload)
	}
	return encodeAsJSON(out, payload)
}
