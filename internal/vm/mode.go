package vm

import (
	"fmt"
	"log/slog"
	"strings"
)

// Mode selects the backend servicing API calls.
type Mode string

const (
	ModeLocal   Mode = "local"
	ModeNetwork Mode = "network"
)

// ParseMode accepts "local" or "network"; empty means local.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeLocal:
		return ModeLocal, nil
	case ModeNetwork:
		return ModeNetwork, nil
	default:
		return "", fmt.Errorf("unsupported vm mode: %s", raw)
	}
}

// NewAPI resolves the mode once, at startup, to a concrete API.
func NewAPI(mode Mode, multipass Multipass, logger *slog.Logger) (API, error) {
	switch mode {
	case ModeLocal, "":
		if multipass == nil {
			return nil, fmt.Errorf("local mode requires a multipass adapter")
		}
		return NewLocalAPI(multipass, logger), nil
	case ModeNetwork:
		return nil, fmt.Errorf("network mode is planned but not implemented yet: %w", ErrNotImplemented)
	default:
		return nil, fmt.Errorf("unsupported vm mode: %s", mode)
	}
}
