// Package match defines match assignment records and extracts them from the
// association's "Mes assignations" listing.
//
// A Record keeps its date as YYYY-MM-DD and its start time as HH:MM so
// records sort chronologically as plain strings and serialize to CSV as-is.
// The listing's own formats (day-first dates, "18h30", "6:30 PM") are
// normalized by ParseDate and ParseTime; a row whose date or time cannot be
// normalized never becomes a record.
//
// Diff compares two runs so a report can show which assignments were added,
// removed or rescheduled since the last time the listing was fetched.
package match
