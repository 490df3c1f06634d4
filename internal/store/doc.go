// Package store provides SQLite-backed durable storage for emitted streams.
//
// Every compilation that emits to a db output becomes one run:
//   - runs: one row per committed emission
//   - run_actions: the records of a run, in stream order
//
// # Identity and Ordering
//
//   - Run ids are UUIDv7
//   - Runs are ordered by seq INTEGER (logical clock), never by timestamps
//   - Record hashes are content addressed via ir.RecordHash; the run's
//     stream hash is ir.StreamHash over them
//   - All queries order by seq ASC, position ASC
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// # Queries
//
// FindActions searches records across runs with Equals/And predicates.
// Predicates compile to parameterized SQL over a fixed column set.
//
// A run is written inside one transaction. It becomes visible on Close and
// vanishes on Discard, matching the commit rules of the file sinks.
package store
