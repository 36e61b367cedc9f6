// Package storage persists the artifacts of a run in the output directory.
//
// A run leaves behind the three fetched HTML pages, one CSV file per listing
// (matches.csv, addresses.csv, referees.csv) and the generated
// matches_calendar.ics. Every write goes through a temporary file and a
// rename, so an interrupted run never leaves a truncated calendar behind.
// The previous matches.csv doubles as the baseline for the run diff.
package storage
