// Package harness runs pipeline scenarios against a scratch database.
//
// A scenario seeds a fresh in-memory SQLite database, runs a pipeline with
// a fixed invocation time and run id, and checks the captured output, the
// payload registers and the final table contents.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	setup:
//	  - |
//	    CREATE TABLE patients (id INTEGER PRIMARY KEY, chart_number TEXT);
//	now: "2024-03-15T10:30:00Z"
//	registers:
//	  patients:
//	    - chart_number: C0001
//	pipeline:
//	  jobs:
//	    - name: upsert_patients
//	      type: db_fuel/active_record/upsert
//	      register: patients
//	      table_name: patients
//	      unique_attributes:
//	        - key: chart_number
//	assertions:
//	  - type: output_contains
//	    line: "Total Inserted: 1"
//	  - type: final_state
//	    table: patients
//	    where: { chart_number: C0001 }
//	    expect: { id: 1 }
//
// # Assertion Types
//
//   - output_contains: some output line contains the given text
//   - output_order: the given texts appear on output lines in order
//   - register_count: a register holds exactly N rows
//   - row_count: a table holds exactly N rows matching where
//   - final_state: exactly one row matches where and carries expect
//
// A scenario whose run is expected to fail names the error text under
// expect.error. Assertions are still evaluated so partial writes can be
// checked.
//
// # Deterministic Testing
//
// Runs use a fixed invocation time (scenario.now, or testutil.FixedNow) and
// a fixed run id (scenario.run_id, or "test-run-default"), so captured
// output can be compared against golden files.
package harness
