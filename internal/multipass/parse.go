package multipass

import (
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/ccheshirecat/safepaw/internal/vm"
)

// Multipass JSON is decoded into a generic tree and then read field by field:
// a missing required field fails the whole operation, a missing or malformed
// optional field leaves the attribute unset.

func parseInfo(name, raw string) (vm.Status, error) {
	const action = "status"

	root, err := decodeTree(action, raw)
	if err != nil {
		return vm.Status{}, err
	}
	info, ok := objectField(root, "info")
	if !ok {
		return vm.Status{}, &vm.InvalidOutputError{Action: action, Reason: "missing info object"}
	}
	entry, _ := objectField(info, name)
	state, ok := stringField(entry, "state")
	if !ok {
		return vm.Status{}, &vm.InvalidOutputError{Action: action, Reason: "missing VM state"}
	}

	status := vm.Status{
		Name:         name,
		State:        state,
		IPv4:         stringArray(entry, "ipv4"),
		Release:      optionalString(entry, "release"),
		ImageRelease: optionalString(entry, "image_release"),
		CPUCount:     optionalString(entry, "cpu_count"),
	}
	if memory, ok := objectField(entry, "memory"); ok {
		status.MemoryTotal = uintField(memory, "total")
		status.MemoryUsed = uintField(memory, "used")
	}
	if disk, ok := firstDisk(entry); ok {
		status.DiskTotal = numericStringField(disk, "total")
		status.DiskUsed = numericStringField(disk, "used")
	}
	return status, nil
}

func parseList(raw string) ([]vm.Summary, error) {
	const action = "list"

	root, err := decodeTree(action, raw)
	if err != nil {
		return nil, err
	}
	items, ok := root["list"].([]any)
	if !ok {
		return nil, &vm.InvalidOutputError{Action: action, Reason: "missing list array"}
	}

	vms := make([]vm.Summary, 0, len(items))
	for _, item := range items {
		entry, _ := item.(map[string]any)
		name, ok := stringField(entry, "name")
		if !ok {
			return nil, &vm.InvalidOutputError{Action: action, Reason: "missing VM name"}
		}
		state, ok := stringField(entry, "state")
		if !ok {
			return nil, &vm.InvalidOutputError{Action: action, Reason: "missing VM state"}
		}
		vms = append(vms, vm.Summary{
			Name:    name,
			State:   state,
			IPv4:    stringArray(entry, "ipv4"),
			Release: optionalString(entry, "release"),
		})
	}
	return vms, nil
}

// decodeTree parses raw into a JSON object. A valid non-object document yields
// an empty object so that the caller reports the missing required field.
// Anything but whitespace after the document is rejected.
func decodeTree(action, raw string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, &vm.InvalidOutputError{Action: action, Reason: err.Error()}
	}
	if err := dec.Decode(new(any)); !errors.Is(err, io.EOF) {
		return nil, &vm.InvalidOutputError{Action: action, Reason: "trailing data after JSON document"}
	}
	obj, _ := doc.(map[string]any)
	return obj, nil
}

func objectField(m map[string]any, key string) (map[string]any, bool) {
	obj, ok := m[key].(map[string]any)
	return obj, ok
}

func stringField(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok
}

func optionalString(m map[string]any, key string) *string {
	s, ok := stringField(m, key)
	if !ok {
		return nil
	}
	return &s
}

// stringArray keeps only the string elements of an array field. It returns
// nil when the field is absent or not an array.
func stringArray(m map[string]any, key string) []string {
	arr, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// uintField reads a JSON number that fits in a uint64.
func uintField(m map[string]any, key string) *uint64 {
	n, ok := m[key].(json.Number)
	if !ok {
		return nil
	}
	v, err := strconv.ParseUint(n.String(), 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// numericStringField reads a decimal integer encoded as a JSON string.
func numericStringField(m map[string]any, key string) *uint64 {
	s, ok := stringField(m, key)
	if !ok {
		return nil
	}
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// firstDisk returns the disk entry whose key sorts first. Multipass keys disks
// by device name ("sda1"), so this is normally the root disk.
func firstDisk(entry map[string]any) (map[string]any, bool) {
	disks, ok := objectField(entry, "disks")
	if !ok || len(disks) == 0 {
		return nil, false
	}
	keys := make([]string, 0, len(disks))
	for k := range disks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	disk, ok := disks[keys[0]].(map[string]any)
	return disk, ok
}
