// Package db persists tracking runs in SQLite.
//
// Responsibilities: opening the database with the connection pragmas,
// applying the embedded schema migrations, and storing or reloading a
// run's header, trajectory, crossings and bin summary.
// Key types: DB, RunStore, Run.
//
// NaN values (undefined positions, empty-bin occupancy) are stored as NULL
// and restored as NaN on load.
package db
