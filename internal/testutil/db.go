package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/dbfuel/internal/store"
)

// PatientsSchema creates the statuses and patients tables used across
// package tests.
const PatientsSchema = `
CREATE TABLE statuses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	code VARCHAR(25) NOT NULL,
	priority INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME,
	updated_at DATETIME
);

CREATE TABLE patients (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	chart_number VARCHAR(255),
	first_name VARCHAR(255),
	middle_name VARCHAR(255),
	last_name VARCHAR(255),
	status_id INTEGER REFERENCES statuses(id),
	created_at DATETIME,
	updated_at DATETIME
);
`

// SeedTimestamp is the created_at/updated_at value of seeded rows.
const SeedTimestamp = "2020-01-01 00:00:00"

// PatientsSeed inserts two statuses and three patients:
//
//	C0001 Bozo The Clown   (Active)
//	R0001 Frank Rizzo      (Active)
//	B0001 Bugs The Bunny   (Inactive)
const PatientsSeed = `
INSERT INTO statuses (code, priority, created_at, updated_at) VALUES ('Active', 1, '2020-01-01 00:00:00', '2020-01-01 00:00:00');
INSERT INTO statuses (code, priority, created_at, updated_at) VALUES ('Inactive', 2, '2020-01-01 00:00:00', '2020-01-01 00:00:00');
INSERT INTO patients (chart_number, first_name, middle_name, last_name, status_id, created_at, updated_at)
	VALUES ('C0001', 'Bozo', 'The', 'Clown', 1, '2020-01-01 00:00:00', '2020-01-01 00:00:00');
INSERT INTO patients (chart_number, first_name, middle_name, last_name, status_id, created_at, updated_at)
	VALUES ('R0001', 'Frank', NULL, 'Rizzo', 1, '2020-01-01 00:00:00', '2020-01-01 00:00:00');
INSERT INTO patients (chart_number, first_name, middle_name, last_name, status_id, created_at, updated_at)
	VALUES ('B0001', 'Bugs', 'The', 'Bunny', 2, '2020-01-01 00:00:00', '2020-01-01 00:00:00');
`

// OpenStore opens an empty SQLite store in a temporary directory.
func OpenStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// OpenPatientsDB opens a SQLite store with the patients schema. Seed rows
// are loaded when seed is true.
func OpenPatientsDB(t *testing.T, seed bool) *store.Store {
	t.Helper()
	s := OpenStore(t)
	ctx := context.Background()

	if err := s.ExecScript(ctx, PatientsSchema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	if seed {
		if err := s.ExecScript(ctx, PatientsSeed); err != nil {
			t.Fatalf("seed data: %v", err)
		}
	}
	return s
}

// QueryPatients returns every patient ordered by chart_number.
func QueryPatients(t *testing.T, s *store.Store) []map[string]any {
	t.Helper()
	rows, err := store.QueryRows(context.Background(), s, `SELECT * FROM patients ORDER BY chart_number`)
	if err != nil {
		t.Fatalf("query patients: %v", err)
	}
	return rows
}

// PatientByChart returns the patient with chart_number, or nil.
func PatientByChart(t *testing.T, s *store.Store, chart string) map[string]any {
	t.Helper()
	rows, err := store.QueryRows(context.Background(), s, `SELECT * FROM patients WHERE chart_number = ?`, chart)
	if err != nil {
		t.Fatalf("query patient %s: %v", chart, err)
	}
	if len(rows) == 0 {
		return nil
	}
	return rows[0]
}
