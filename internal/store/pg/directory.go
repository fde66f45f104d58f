// Package pg provides a PostgreSQL-backed user directory behind the same
// interface as the in-memory default. The portal runs memory-only unless a
// DSN is configured; this store exists for deployments that want the
// directory to survive restarts.
package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"qala.org/internal/city"
)

// Schema is the single table this store needs. Applied once at startup;
// a migration framework would be overkill for it.
const Schema = `
create table if not exists users (
	phone         text primary key,
	national_id   text not null unique,
	password_hash text not null,
	name          text not null,
	surname       text not null,
	email         text not null default '',
	address       text not null default '',
	balance       double precision not null default 0,
	history       jsonb not null default '[]',
	honeypot      boolean not null default false,
	created_at    timestamptz not null default now()
)`

// Directory implements city.Directory over PostgreSQL.
type Directory struct {
	db *sql.DB
}

var _ city.Directory = (*Directory)(nil)

// Open connects with pool defaults tuned for the demo scale.
func Open(dsn string) (*Directory, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(15 * time.Minute)
	return &Directory{db: db}, nil
}

// New wraps an existing handle (tests use sqlmock through this).
func New(db *sql.DB) *Directory { return &Directory{db: db} }

func (d *Directory) Close() error { return d.db.Close() }

// DB exposes the underlying handle for readiness pings.
func (d *Directory) DB() *sql.DB { return d.db }

// EnsureSchema applies the table definition.
func (d *Directory) EnsureSchema(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, Schema)
	return err
}

func (d *Directory) Put(rec *city.UserRecord) error {
	history, err := json.Marshal(rec.History)
	if err != nil {
		return err
	}
	res := rec.Resident
	_, err = d.db.Exec(`
		insert into users(phone, national_id, password_hash, name, surname, email, address, balance, history, honeypot)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		res.Phone, rec.NationalID, rec.PasswordHash, res.Name, res.Surname,
		res.Email, res.Address, rec.Balance, history, rec.Honeypot,
	)
	if err != nil {
		// unique violation on phone or national id
		return city.ErrDuplicatePhone
	}
	return nil
}

const selectColumns = `phone, national_id, password_hash, name, surname, email, address, balance, history, honeypot`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*city.UserRecord, error) {
	var (
		phone, nationalID, passwordHash    string
		name, surname, email, address      string
		balance                            float64
		history                            []byte
		honeypot                           bool
	)
	if err := row.Scan(&phone, &nationalID, &passwordHash, &name, &surname, &email, &address, &balance, &history, &honeypot); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, city.ErrUserNotFound
		}
		return nil, err
	}
	var entries []string
	if len(history) > 0 {
		if err := json.Unmarshal(history, &entries); err != nil {
			return nil, fmt.Errorf("pg: decode history: %w", err)
		}
	}
	return &city.UserRecord{
		NationalID:   nationalID,
		PasswordHash: passwordHash,
		Resident: &city.Resident{
			Name:    name,
			Surname: surname,
			Email:   email,
			Address: address,
			Phone:   phone,
			Home:    city.NewSmartHomeSystem(phone, nil),
		},
		Balance:  balance,
		History:  entries,
		Honeypot: honeypot,
	}, nil
}

func (d *Directory) View(phone string, fn func(*city.UserRecord)) error {
	row := d.db.QueryRow(`select `+selectColumns+` from users where phone=$1`, phone)
	rec, err := scanRecord(row)
	if err != nil {
		return err
	}
	fn(rec)
	return nil
}

// Update materializes the record, applies fn, and writes the mutable
// fields back inside one transaction with the row locked.
func (d *Directory) Update(phone string, fn func(*city.UserRecord) error) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRow(`select `+selectColumns+` from users where phone=$1 for update`, phone)
	rec, err := scanRecord(row)
	if err != nil {
		return err
	}
	if err := fn(rec); err != nil {
		return err
	}
	history, err := json.Marshal(rec.History)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`update users set password_hash=$2, balance=$3, history=$4 where phone=$1`,
		phone, rec.PasswordHash, rec.Balance, history); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *Directory) Each(fn func(phone string, rec *city.UserRecord) bool) {
	rows, err := d.db.Query(`select ` + selectColumns + ` from users order by phone`)
	if err != nil {
		return
	}
	defer rows.Close()
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return
		}
		if !fn(rec.Resident.Phone, rec) {
			return
		}
	}
}

func (d *Directory) HasNationalID(id string) bool {
	var exists bool
	if err := d.db.QueryRow(`select exists(select 1 from users where national_id=$1)`, id).Scan(&exists); err != nil {
		return false
	}
	return exists
}

// Rekey moves the record to the new phone key in one transaction, so no
// reader observes the record under both keys or neither.
func (d *Directory) Rekey(oldPhone, newPhone string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.QueryRow(`select exists(select 1 from users where phone=$1)`, newPhone).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return city.ErrDuplicatePhone
	}
	res, err := tx.Exec(`update users set phone=$2 where phone=$1`, oldPhone, newPhone)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return city.ErrUserNotFound
	}
	return tx.Commit()
}
