package city

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"qala.org/internal/audit"
	"qala.org/internal/mail"
	"qala.org/internal/security"
)

// Honeypot decoy seeded into every directory. A successful credential match
// against it is an intrusion signal, never a session.
const (
	honeypotPhone      = "999999"
	honeypotNationalID = "00000000000"
	honeypotPassword   = "123456"
)

// Login manages registration and authentication against the directory.
type Login struct {
	dir    Directory
	gate   *security.Gate
	ctrl   *Controller
	mailer mail.Mailer

	adminUser string
	adminHash string // bcrypt
}

// NewLogin wires the login flow and seeds the honeypot record.
func NewLogin(ctrl *Controller, mailer mail.Mailer, adminUser, adminHash string) *Login {
	l := &Login{
		dir:       ctrl.Directory(),
		gate:      ctrl.Gate(),
		ctrl:      ctrl,
		mailer:    mailer,
		adminUser: adminUser,
		adminHash: adminHash,
	}
	l.seedHoneypot()
	return l
}

func (l *Login) seedHoneypot() {
	decoy, err := NewResident("Admin", "Backup", "admin_backup@city.com", "Server Room", honeypotPhone, l.gate.MaxInputLength())
	if err != nil {
		return
	}
	_ = l.dir.Put(&UserRecord{
		NationalID:   honeypotNationalID,
		PasswordHash: security.HashPassword(honeypotPassword),
		Resident:     decoy,
		Honeypot:     true,
	})
}

// Register creates a citizen account, wires the resident into the
// broadcast fan-out and, when the email looks deliverable, a mail observer
// too. Failures are soft: (false, reason).
func (l *Login) Register(nationalID, name, surname, email, address, phone, password string) (bool, string) {
	if ok, msg := l.gate.ValidateInput(nationalID, security.GuestIdentity); !ok {
		return false, msg
	}
	// registration attempts are rate-limited per target phone
	if ok, msg := l.gate.ValidateInput("register", phone); !ok {
		return false, msg
	}
	if l.dir.HasNationalID(nationalID) {
		return false, "Registration failed."
	}

	resident, err := NewResident(name, surname, email, address, phone, l.gate.MaxInputLength())
	if err != nil {
		return false, "Name or surname is invalid."
	}
	rec := &UserRecord{
		NationalID:   nationalID,
		PasswordHash: security.HashPassword(password),
		Resident:     resident,
	}
	if err := l.dir.Put(rec); err != nil {
		return false, "Registration failed."
	}

	l.ctrl.AddObserver(resident)
	if strings.Contains(email, "@") {
		l.ctrl.AddObserver(&MailObserver{
			Email:  email,
			Mailer: &SecureMailer{Gate: l.gate, Inner: l.mailer},
			MaxLen: l.gate.MaxInputLength(),
		})
	}
	return true, "Registered."
}

// LoginCitizen authenticates a phone/password pair. Unknown user and bad
// password collapse into one generic message so accounts cannot be
// enumerated; the honeypot path deliberately leaves a distinct internal
// trace while reporting the same generic failure outward.
func (l *Login) LoginCitizen(phone, password string) (bool, string) {
	if ok, msg := l.gate.ValidateInput(phone, phone); !ok {
		return false, msg
	}
	clean := security.Sanitize(phone)

	var (
		honeypot bool
		verified bool
	)
	err := l.dir.View(clean, func(rec *UserRecord) {
		if rec.Honeypot {
			honeypot = true
			return
		}
		verified = security.VerifyPassword(rec.PasswordHash, password)
	})
	if err != nil {
		return false, "Phone number or password is incorrect."
	}
	if honeypot {
		_ = audit.LogEvent(context.Background(), "login.honeypot_triggered", map[string]any{
			"phone": clean,
		})
		l.ctrl.Log("HONEYPOT TRIGGERED: " + clean)
		return false, "Phone number or password is incorrect."
	}
	if !verified {
		return false, "Phone number or password is incorrect."
	}
	return true, "Login successful."
}

// LoginAdmin checks the admin panel credentials. The password is compared
// against the bcrypt hash supplied at process start.
func (l *Login) LoginAdmin(username, password string) (bool, string) {
	if ok, msg := l.gate.ValidateInput(username, "admin-panel"); !ok {
		return false, msg
	}
	clean := security.Sanitize(username)
	if clean != l.adminUser || l.adminHash == "" {
		return false, "Username or password is incorrect."
	}
	if bcrypt.CompareHashAndPassword([]byte(l.adminHash), []byte(password)) != nil {
		_ = audit.LogEvent(context.Background(), "login.admin_failed", map[string]any{
			"username": clean,
		})
		return false, "Username or password is incorrect."
	}
	return true, "Login successful."
}

// UpdatePhone rekeys a citizen to a new phone number: one logical step
// under the directory lock, so the record is never reachable under both
// keys nor lost under neither.
func (l *Login) UpdatePhone(oldPhone, newPhone string) (bool, string) {
	if ok, msg := l.gate.ValidateInput(newPhone, oldPhone); !ok {
		return false, msg
	}
	if err := l.dir.Rekey(oldPhone, security.Sanitize(newPhone)); err != nil {
		return false, "Phone update failed."
	}
	return true, "Phone updated."
}
