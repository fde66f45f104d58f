package city

import (
	"sort"
	"sync"
)

// UserRecord is a citizen's entry in the user directory, keyed by phone.
// Records are created at registration and never deleted. All mutation goes
// through Directory.Update so the single-writer discipline holds.
type UserRecord struct {
	NationalID   string
	PasswordHash string
	Resident     *Resident
	Balance      float64
	History      []string
	Honeypot     bool
}

// Directory is the phone-keyed user store. The in-memory implementation is
// the default; a durable variant lives in internal/store/pg.
type Directory interface {
	// Put inserts a new record keyed by its resident's phone.
	Put(rec *UserRecord) error
	// View runs fn on the record under the store's read discipline.
	View(phone string, fn func(*UserRecord)) error
	// Update runs fn on the record under the store's write lock; a non-nil
	// error from fn aborts the update and is returned unchanged.
	Update(phone string, fn func(*UserRecord) error) error
	// Each visits every record in ascending phone order until fn returns false.
	Each(fn func(phone string, rec *UserRecord) bool)
	// HasNationalID reports whether any record carries the national id.
	HasNationalID(id string) bool
	// Rekey moves a record to a new phone key and rewrites the denormalized
	// phone field, as one step with no interleaved access.
	Rekey(oldPhone, newPhone string) error
}

// MemoryDirectory keeps the directory in a mutex-guarded map for the
// process lifetime. Nothing survives a restart.
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]*UserRecord
}

var _ Directory = (*MemoryDirectory)(nil)

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{users: make(map[string]*UserRecord)}
}

func (d *MemoryDirectory) Put(rec *UserRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	phone := rec.Resident.Phone
	if _, exists := d.users[phone]; exists {
		return ErrDuplicatePhone
	}
	d.users[phone] = rec
	return nil
}

func (d *MemoryDirectory) View(phone string, fn func(*UserRecord)) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.users[phone]
	if !ok {
		return ErrUserNotFound
	}
	fn(rec)
	return nil
}

func (d *MemoryDirectory) Update(phone string, fn func(*UserRecord) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.users[phone]
	if !ok {
		return ErrUserNotFound
	}
	return fn(rec)
}

func (d *MemoryDirectory) Each(fn func(phone string, rec *UserRecord) bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, phone := range d.sortedPhonesLocked() {
		if !fn(phone, d.users[phone]) {
			return
		}
	}
}

func (d *MemoryDirectory) HasNationalID(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, rec := range d.users {
		if rec.NationalID == id {
			return true
		}
	}
	return false
}

// Rekey performs lookup old, pop old, mutate phone, insert new as a single
// critical section. Readers see the record under the old key or the new
// key, never neither.
func (d *MemoryDirectory) Rekey(oldPhone, newPhone string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.users[oldPhone]
	if !ok {
		return ErrUserNotFound
	}
	if _, exists := d.users[newPhone]; exists {
		return ErrDuplicatePhone
	}
	delete(d.users, oldPhone)
	rec.Resident.Phone = newPhone
	if rec.Resident.Home != nil {
		rec.Resident.Home.setOwner(newPhone)
	}
	d.users[newPhone] = rec
	return nil
}

func (d *MemoryDirectory) sortedPhonesLocked() []string {
	phones := make([]string, 0, len(d.users))
	for p := range d.users {
		phones = append(phones, p)
	}
	// stable output keeps the admin listing and tests deterministic
	sort.Strings(phones)
	return phones
}
