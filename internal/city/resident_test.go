package city

import (
	"strings"
	"testing"
)

func TestNewResidentSanitizes(t *testing.T) {
	r, err := NewResident("Ada;DROP", "O'Brien", "a@c.gov", "addr", "100", 3000)
	if err != nil {
		t.Fatalf("NewResident: %v", err)
	}
	if strings.Contains(r.Name, ";") || strings.Contains(strings.ToUpper(r.Name), "DROP") {
		t.Fatalf("name not sanitized: %q", r.Name)
	}
	if r.Surname != "O''Brien" {
		t.Fatalf("quote not escaped: %q", r.Surname)
	}
}

func TestNewResidentRejectsOversizedName(t *testing.T) {
	if _, err := NewResident(strings.Repeat("a", 20), "Marsh", "", "", "1", 10); err != ErrInvalidName {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestResidentUpdateForwardsAnnouncement(t *testing.T) {
	r, err := NewResident("Ada", "Marsh", "", "", "100", 3000)
	if err != nil {
		t.Fatal(err)
	}

	// without a sink the announcement is dropped
	r.Update("quiet")

	var got []string
	r.Home.SetSink(func(msg string) { got = append(got, msg) })
	r.Update("water outage at noon")
	if len(got) != 1 || got[0] != "ANNOUNCEMENT: water outage at noon" {
		t.Fatalf("unexpected forwarded messages: %v", got)
	}
}

func TestSendHomeReportLastFifty(t *testing.T) {
	r, err := NewResident("Ada", "Marsh", "ada@city.gov", "", "100", 3000)
	if err != nil {
		t.Fatal(err)
	}
	r.Home.SetSink(func(string) {})
	for i := 0; i < 60; i++ {
		r.Home.TurnOnLights()
	}

	m := &fakeMailer{}
	ok, msg := r.SendHomeReport(m)
	if !ok {
		t.Fatalf("SendHomeReport: %s", msg)
	}
	if len(m.sent) != 1 {
		t.Fatalf("expected one mail, got %d", len(m.sent))
	}
	body := m.sent[0]
	if !strings.Contains(body, "Dear Ada") {
		t.Fatalf("report not addressed to resident: %q", body)
	}
	if n := strings.Count(body, "Lights turned on."); n != 50 {
		t.Fatalf("expected last 50 entries, got %d", n)
	}
}

func TestMailObserverTruncates(t *testing.T) {
	m := &fakeMailer{}
	o := &MailObserver{Email: "x@c.gov", Mailer: m, MaxLen: 10}
	o.Update(strings.Repeat("z", 25))
	if len(m.sent) != 1 {
		t.Fatalf("expected one mail, got %d", len(m.sent))
	}
	if !strings.Contains(m.sent[0], strings.Repeat("z", 10)+"...") {
		t.Fatalf("message not truncated with ellipsis: %q", m.sent[0])
	}
	if strings.Contains(m.sent[0], strings.Repeat("z", 11)) {
		t.Fatalf("message exceeded cap: %q", m.sent[0])
	}
}
