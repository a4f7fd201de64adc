// Package harness runs resolution scenarios: YAML files that pair natural
// language inputs with the canonical form, SQL and failure category they
// must resolve to.
//
// # Scenario Format
//
//	name: aggregates
//	description: "Aggregates over the users table"
//	artifacts: ../catalog        # relative to the scenario file
//	dialect: sqlite              # default for every case
//	setup:                       # optional SQL run against a fresh
//	  - CREATE TABLE users (...)  # in-memory database
//	cases:
//	  - input: show the average of age in people
//	    expect:
//	      ok: true
//	      canonical: select avg of age from users
//	      sql: SELECT AVG("users"."age") FROM "users";
//	      rows: 1
//	  - input: show salary in people
//	    strict: false
//	    expect:
//	      fail_category: normalizer_zero
//
// # Expectations
//
// Every field of expect is optional and only the fields given are checked:
//
//   - ok: whether the resolution succeeded
//   - canonical: the serialized canonical string
//   - sql: the exact emitted statement; sql_contains checks a substring
//   - fail_category: normalizer_zero, binder_fail, parser_fail or emitter_fail
//   - relaxed: whether the strict pass was retried leniently
//   - warnings: substrings that must each appear in some warning
//   - rows: number of rows the SQL returns against the setup database
//
// # Deterministic Testing
//
// Resolution ids come from a sequence generator, so a scenario produces the
// same snapshot on every run and can be compared with golden files.
package harness
