package vm

// Summary is the per-instance record produced by list.
type Summary struct {
	Name    string
	State   string
	IPv4    []string
	Release *string
}

// Status is the detailed record produced by info. Pointer fields are nil when
// multipass did not report them.
type Status struct {
	Name         string
	State        string
	IPv4         []string
	Release      *string
	ImageRelease *string
	// CPUCount is kept verbatim; multipass reports it as a string.
	CPUCount    *string
	MemoryTotal *uint64
	MemoryUsed  *uint64
	DiskTotal   *uint64
	DiskUsed    *uint64
}

// NewSummary returns a Summary with only the required fields set.
func NewSummary(name, state string) Summary {
	return Summary{Name: name, State: state}
}

// NewStatus returns a Status with only the required fields set.
func NewStatus(name, state string) Status {
	return Status{Name: name, State: state}
}

// Summary projects the status down to its list-level fields.
func (s Status) Summary() Summary {
	return Summary{Name: s.Name, State: s.State, IPv4: s.IPv4, Release: s.Release}
}
