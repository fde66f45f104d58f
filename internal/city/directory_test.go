package city

import (
	"testing"

	"qala.org/internal/security"
)

func testRecord(t *testing.T, phone string) *UserRecord {
	t.Helper()
	res, err := NewResident("Ada", "Marsh", "ada@city.gov", "1 Main St", phone, 3000)
	if err != nil {
		t.Fatalf("NewResident: %v", err)
	}
	return &UserRecord{
		NationalID:   "1111" + phone,
		PasswordHash: security.HashPassword("pw"),
		Resident:     res,
	}
}

func TestDirectoryPutAndDuplicate(t *testing.T) {
	d := NewMemoryDirectory()
	if err := d.Put(testRecord(t, "100")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := d.Put(testRecord(t, "100")); err != ErrDuplicatePhone {
		t.Fatalf("expected ErrDuplicatePhone, got %v", err)
	}
	if err := d.View("missing", func(*UserRecord) {}); err != ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestDirectoryRekey(t *testing.T) {
	d := NewMemoryDirectory()
	rec := testRecord(t, "100")
	rec.Resident.Home.TurnOnLights()
	if err := d.Put(rec); err != nil {
		t.Fatal(err)
	}

	if err := d.Rekey("100", "200"); err != nil {
		t.Fatalf("Rekey: %v", err)
	}
	if err := d.View("100", func(*UserRecord) {}); err != ErrUserNotFound {
		t.Fatal("record still reachable under old key")
	}
	var phone string
	if err := d.View("200", func(r *UserRecord) { phone = r.Resident.Phone }); err != nil {
		t.Fatalf("record lost during rekey: %v", err)
	}
	if phone != "200" {
		t.Fatalf("denormalized phone not rewritten: %s", phone)
	}
	// home ownership follows the rekey
	if logs := rec.Resident.Home.ReadLogs("200"); len(logs) != 1 {
		t.Fatalf("new phone should own home logs, got %v", logs)
	}
	if logs := rec.Resident.Home.ReadLogs("100"); logs[0] != AccessDenied {
		t.Fatal("old phone must lose home log access")
	}
}

func TestDirectoryRekeyErrors(t *testing.T) {
	d := NewMemoryDirectory()
	if err := d.Rekey("nope", "x"); err != ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	_ = d.Put(testRecord(t, "1"))
	_ = d.Put(testRecord(t, "2"))
	if err := d.Rekey("1", "2"); err != ErrDuplicatePhone {
		t.Fatalf("expected ErrDuplicatePhone, got %v", err)
	}
}

func TestDirectoryEachOrderedAndNationalID(t *testing.T) {
	d := NewMemoryDirectory()
	_ = d.Put(testRecord(t, "3"))
	_ = d.Put(testRecord(t, "1"))
	_ = d.Put(testRecord(t, "2"))

	var order []string
	d.Each(func(phone string, _ *UserRecord) bool {
		order = append(order, phone)
		return true
	})
	if len(order) != 3 || order[0] != "1" || order[1] != "2" || order[2] != "3" {
		t.Fatalf("unexpected iteration order: %v", order)
	}

	if !d.HasNationalID("11111") {
		t.Fatal("expected national id to be present")
	}
	if d.HasNationalID("unknown") {
		t.Fatal("unexpected national id hit")
	}
}
