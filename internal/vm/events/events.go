package events

import "time"

// VMEvent describes a lifecycle change made through the API.
type VMEvent struct {
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message,omitempty"`
}

const (
	TypeVMLaunched  = "VM_LAUNCHED"
	TypeVMStarted   = "VM_STARTED"
	TypeVMStopped   = "VM_STOPPED"
	TypeVMRestarted = "VM_RESTARTED"
	TypeVMDeleted   = "VM_DELETED"
)

// TopicVMEvents is the bus topic carrying VMEvent payloads.
const TopicVMEvents = "safepaw.vm.events"

// TypeForAction maps a lifecycle verb to its event type.
func TypeForAction(action string) (string, bool) {
	switch action {
	case "launch":
		return TypeVMLaunched, true
	case "start":
		return TypeVMStarted, true
	case "stop":
		return TypeVMStopped, true
	case "restart":
		return TypeVMRestarted, true
	case "delete":
		return TypeVMDeleted, true
	default:
		return "", false
	}
}

// New builds an event for a completed action, stamped in UTC.
func New(action, name, message string) VMEvent {
	typ, _ := TypeForAction(action)
	return VMEvent{
		Type:      typ,
		Name:      name,
		Action:    action,
		Timestamp: time.Now().UTC(),
		Message:   message,
	}
}
