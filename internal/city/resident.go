package city

import (
	"fmt"
	"strings"

	"qala.org/internal/mail"
	"qala.org/internal/security"
)

// Resident is a registered citizen. Name and surname are sanitized at
// construction; construction is the one place in the portal where a
// validation failure is hard, not a soft rejection.
type Resident struct {
	Name    string
	Surname string
	Email   string
	Address string
	Phone   string
	Home    *SmartHomeSystem
}

// NewResident sanitizes the identity fields and attaches a fresh home
// system owned by the phone number.
func NewResident(name, surname, email, address, phone string, maxInput int) (*Resident, error) {
	safeName := security.Sanitize(name)
	safeSurname := security.Sanitize(surname)
	if len(safeName) > maxInput || len(safeSurname) > maxInput {
		return nil, ErrInvalidName
	}
	return &Resident{
		Name:    safeName,
		Surname: safeSurname,
		Email:   email,
		Address: address,
		Phone:   phone,
		Home:    NewSmartHomeSystem(phone, nil),
	}, nil
}

// Update implements Observer: announcements are forwarded to the home
// system's sink when one is attached, otherwise dropped.
func (r *Resident) Update(message string) {
	r.Home.mu.Lock()
	sink := r.Home.sink
	r.Home.mu.Unlock()
	if sink != nil {
		sink("ANNOUNCEMENT: " + message)
	}
}

// SendHomeReport mails the resident the last 50 entries of their own home
// log. The logs are requested with the resident's own phone, so the
// access check passes by construction; the denied branch stays for the
// case where the home was rekeyed underneath.
func (r *Resident) SendHomeReport(m mail.Mailer) (bool, string) {
	logs := r.Home.ReadLogs(r.Phone)
	if len(logs) == 0 || strings.Contains(logs[0], "Access Denied") {
		return false, "Access to logs denied."
	}
	if len(logs) > 50 {
		logs = logs[len(logs)-50:]
	}
	body := fmt.Sprintf("Dear %s,\n\nReport:\n\n%s", r.Name, strings.Join(logs, "\n"))
	return m.Send(r.Email, "Home Report", body)
}
