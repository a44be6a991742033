package domain

import "time"

// TargetRoleAll addresses every role in the tenant.
const TargetRoleAll = "all"

// Actor identifies the user whose mutation produced an event.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Event is a transient domain event fanned out to live sessions.
// It is created by a business handler immediately after a committed write,
// consumed by the broadcast hub, and never mutated or retried.
type Event struct {
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Module     string    `json:"module"`
	EntityID   string    `json:"entity_id,omitempty"`
	ActionURL  string    `json:"action_url,omitempty"`
	TargetRole string    `json:"target_role,omitempty"` // empty or "all" means everyone
	TenantID   string    `json:"tenant_id"`
	Actor      Actor     `json:"actor"`
	Urgent     bool      `json:"urgent,omitempty"`
	Icon       string    `json:"icon,omitempty"`
	Color      string    `json:"color,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Targets reports whether the event is visible to the given role.
func (e *Event) Targets(role string) bool {
	return e.TargetRole == "" || e.TargetRole == TargetRoleAll || e.TargetRole == role
}

// ModuleMeta is presentation metadata for a functional area, resolved once at
// event-creation time instead of pattern-matched repeatedly on the client.
type ModuleMeta struct {
	Icon  string
	Color string
}

// Functional-area tags used for routing and UI iconography.
const (
	ModuleAttendance    = "attendance"
	ModuleCommunication = "communication"
	ModuleExams         = "exams"
	ModuleFees          = "fees"
	ModuleHostel        = "hostel"
	ModuleLibrary       = "library"
	ModuleStudents      = "students"
	ModuleTransport     = "transport"
)

var moduleMeta = map[string]ModuleMeta{
	ModuleAttendance:    {Icon: "calendar-check", Color: "teal"},
	ModuleCommunication: {Icon: "megaphone", Color: "blue"},
	ModuleExams:         {Icon: "clipboard-list", Color: "purple"},
	ModuleFees:          {Icon: "credit-card", Color: "green"},
	ModuleHostel:        {Icon: "bed", Color: "orange"},
	ModuleLibrary:       {Icon: "book-open", Color: "indigo"},
	ModuleStudents:      {Icon: "graduation-cap", Color: "cyan"},
	ModuleTransport:     {Icon: "bus", Color: "yellow"},
}

var defaultModuleMeta = ModuleMeta{Icon: "bell", Color: "gray"}

// ResolveModuleMeta returns the icon/color pair for a module tag.
func ResolveModuleMeta(module string) ModuleMeta {
	if m, ok := moduleMeta[module]; ok {
		return m
	}
	return defaultModuleMeta
}
