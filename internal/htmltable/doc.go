// Package htmltable turns loosely-structured HTML listings into a generic
// row/cell view.
//
// Parsing is split in two steps: Parse walks the document and keeps only the
// table with the most data rows, returning plain text, links and form controls
// per cell; Resolve then maps semantic columns onto cell indexes by header text,
// falling back to fixed positions. Layout drift on the source site only
// requires updating a column list, never the walk itself.
package htmltable
