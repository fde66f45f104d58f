package city

import (
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"qala.org/internal/security"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []string // "to|subject|body"
}

func (f *fakeMailer) Send(to, subject, body string) (bool, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to+"|"+subject+"|"+body)
	return true, "Email successfully sent."
}

func newTestLogin(t *testing.T) (*Login, *Controller, *fakeMailer) {
	t.Helper()
	gate := security.NewGate(3000, 60*time.Second, 100)
	ctrl, err := NewController(NewMemoryDirectory(), gate, security.NewObfuscator(""))
	if err != nil {
		t.Fatal(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	m := &fakeMailer{}
	return NewLogin(ctrl, m, "admin", string(hash)), ctrl, m
}

func TestRegisterAndLogin(t *testing.T) {
	l, ctrl, _ := newTestLogin(t)

	ok, msg := l.Register("12345678901", "Ada", "Marsh", "ada@city.gov", "1 Main St", "05551234567", "1234")
	if !ok {
		t.Fatalf("register failed: %s", msg)
	}
	// resident observer plus mail observer
	if n := ctrl.ObserverCount(); n != 2 {
		t.Fatalf("expected 2 observers wired, got %d", n)
	}

	if ok, msg := l.LoginCitizen("05551234567", "1234"); !ok {
		t.Fatalf("login failed: %s", msg)
	}
	if ok, _ := l.LoginCitizen("05551234567", "wrong"); ok {
		t.Fatal("wrong password accepted")
	}
	if ok, msg := l.LoginCitizen("05550000000", "1234"); ok || !strings.Contains(msg, "incorrect") {
		t.Fatalf("unknown user must get the generic failure, got ok=%v msg=%q", ok, msg)
	}
}

func TestRegisterWithoutEmailSkipsMailObserver(t *testing.T) {
	l, ctrl, _ := newTestLogin(t)
	if ok, msg := l.Register("123", "Ada", "Marsh", "", "addr", "100", "pw"); !ok {
		t.Fatalf("register: %s", msg)
	}
	if n := ctrl.ObserverCount(); n != 1 {
		t.Fatalf("expected only the resident observer, got %d", n)
	}
}

func TestRegisterDuplicateNationalID(t *testing.T) {
	l, _, _ := newTestLogin(t)
	if ok, _ := l.Register("777", "Ada", "Marsh", "a@c.gov", "addr", "100", "pw"); !ok {
		t.Fatal("first register failed")
	}
	if ok, _ := l.Register("777", "Bo", "Marsh", "b@c.gov", "addr", "200", "pw"); ok {
		t.Fatal("duplicate national id accepted")
	}
}

func TestHoneypotLoginRejectedGenerically(t *testing.T) {
	l, ctrl, _ := newTestLogin(t)

	// the decoy's real password never opens a session
	ok, msg := l.LoginCitizen("999999", "123456")
	if ok {
		t.Fatal("honeypot login must never succeed")
	}
	if !strings.Contains(msg, "incorrect") {
		t.Fatalf("honeypot must surface the generic failure, got %q", msg)
	}
	if !strings.Contains(ctrl.LastLog(), "HONEYPOT TRIGGERED") {
		t.Fatalf("intrusion not recorded: %q", ctrl.LastLog())
	}
}

func TestHoneypotHiddenFromSearchButListed(t *testing.T) {
	_, ctrl, _ := newTestLogin(t)
	if res := ctrl.SearchUsers("Backup"); len(res) != 0 {
		t.Fatalf("honeypot visible in search: %v", res)
	}
	all := ctrl.GetAllUsers()
	if len(all) != 1 || !strings.Contains(all[0], "[HONEYPOT/FAKE]") {
		t.Fatalf("honeypot missing from full listing: %v", all)
	}
}

func TestAdminLogin(t *testing.T) {
	l, _, _ := newTestLogin(t)
	if ok, msg := l.LoginAdmin("admin", "1234"); !ok {
		t.Fatalf("admin login failed: %s", msg)
	}
	if ok, _ := l.LoginAdmin("admin", "wrong"); ok {
		t.Fatal("wrong admin password accepted")
	}
	if ok, _ := l.LoginAdmin("root", "1234"); ok {
		t.Fatal("unknown admin user accepted")
	}
}

func TestUpdatePhoneRekeys(t *testing.T) {
	l, _, _ := newTestLogin(t)
	if ok, msg := l.Register("1", "Ada", "Marsh", "", "addr", "100", "pw"); !ok {
		t.Fatal(msg)
	}
	if ok, msg := l.UpdatePhone("100", "200"); !ok {
		t.Fatalf("UpdatePhone: %s", msg)
	}
	if ok, _ := l.LoginCitizen("200", "pw"); !ok {
		t.Fatal("login under new phone failed")
	}
	if ok, _ := l.LoginCitizen("100", "pw"); ok {
		t.Fatal("login under old phone still works")
	}
}

func TestRegistrationRateLimited(t *testing.T) {
	gate := security.NewGate(3000, 60*time.Second, 5)
	ctrl, err := NewController(NewMemoryDirectory(), gate, security.NewObfuscator(""))
	if err != nil {
		t.Fatal(err)
	}
	l := NewLogin(ctrl, &fakeMailer{}, "admin", "")

	now := time.Unix(3000, 0)
	gate.Limiter().SetClock(func() time.Time { return now })

	// each attempt charges the guest identity once and the phone once
	for i := 0; i < 5; i++ {
		l.Register("dup", "Ada", "Marsh", "", "addr", "100", "pw")
	}
	ok, msg := l.Register("other", "Ada", "Marsh", "", "addr", "999", "pw")
	if ok || msg != security.MsgRateLimited {
		t.Fatalf("6th guest-charged registration: ok=%v msg=%q", ok, msg)
	}
}
