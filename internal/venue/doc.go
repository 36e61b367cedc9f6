// Package venue parses the association's address listing into a venue
// directory and resolves the venue references found on the match listing.
//
// Addresses are free text. ParseAddress splits them on a trailing postal code
// and the last comma-separated segment; anything it cannot split is kept raw,
// since a printable location is all a calendar event needs.
//
// Match rows usually reference a venue by an abbreviated school name rather
// than an id, so Directory.Resolve falls back to fuzzy name matching.
package venue
