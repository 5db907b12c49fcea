package entities

// AutomationSettings is the per-tenant notification configuration. It is
// read-only input here; the loan application's settings screen mutates it.
type AutomationSettings struct {
	TenantID         string
	Enabled          bool
	EarlyDays        int
	SendDueToday     bool
	SendOverdue      bool
	SendEarly        bool
	TemplateDueToday string
	TemplateOverdue  string
	TemplateEarly    string
}

// TemplateFor returns the message template configured for the given kind.
func (s AutomationSettings) TemplateFor(kind NotificationKind) string {
	switch kind {
	case KindEarly:
		return s.TemplateEarly
	case KindDueToday:
		return s.TemplateDueToday
	case KindOverdue:
		return s.TemplateOverdue
	}
	return ""
}
