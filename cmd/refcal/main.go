// Command refcal converts the referee's match listings into an iCalendar file.
package main

import (
	"os"

	"github.com/refcal/refcal/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
