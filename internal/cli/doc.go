// Package cli implements the command-line interface for refcal.
//
// The cli package provides the Cobra root command: it loads the configuration,
// builds the fetch client (or reuses saved pages with --offline), runs the
// pipeline and prints a text or JSON report of the run, including the
// assignments added, removed or rescheduled since the previous run.
package cli
