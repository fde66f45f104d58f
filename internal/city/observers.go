package city

import (
	"fmt"
	"strings"

	"qala.org/internal/mail"
	"qala.org/internal/obs"
	"qala.org/internal/security"
)

// SecureMailer runs the security gate over the body before delegating to
// the real sink. The recipient address is charged as the rate-limit
// identity, so one mailbox cannot be flooded through the broadcast path.
type SecureMailer struct {
	Gate  *security.Gate
	Inner mail.Mailer
}

var _ mail.Mailer = (*SecureMailer)(nil)

func (m *SecureMailer) Send(to, subject, body string) (bool, string) {
	if ok, msg := m.Gate.ValidateInput(body, to); !ok {
		return false, msg
	}
	return m.Inner.Send(to, subject, body)
}

// MailObserver forwards announcements to a mailbox, truncated to the input
// cap with a trailing ellipsis.
type MailObserver struct {
	Email  string
	Mailer mail.Mailer
	MaxLen int
}

var _ Observer = (*MailObserver)(nil)

func (m *MailObserver) Update(message string) {
	safe := message
	if len(safe) > m.MaxLen {
		safe = safe[:m.MaxLen] + "..."
	}
	body := fmt.Sprintf("Dear User,\n\nYou have a notification from the city management system:\n\n%s\n\nBest regards,\nSmart City Management", safe)
	m.Mailer.Send(m.Email, "City System Notification", body)
}

// PublicSecurityAuthority reacts to emergencies and intrusion markers.
type PublicSecurityAuthority struct{}

var _ Observer = PublicSecurityAuthority{}

func (PublicSecurityAuthority) Update(message string) {
	upper := strings.ToUpper(message)
	switch {
	case strings.Contains(upper, "FIRE") || strings.Contains(upper, "EARTHQUAKE"):
		obs.Trace("authority.police_alert", map[string]any{"message": message})
	case strings.Contains(upper, "HONEYPOT"):
		obs.Trace("authority.cybercrime_alert", map[string]any{"message": message})
	}
}

// PublicUtilityService dispatches repair crews on utility faults.
type PublicUtilityService struct{}

var _ Observer = PublicUtilityService{}

func (PublicUtilityService) Update(message string) {
	if strings.Contains(strings.ToUpper(message), "ELECTRICITY") {
		obs.Trace("utility.electricity_fault", map[string]any{"message": message})
	}
}
