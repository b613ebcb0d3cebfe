// Command attendctl runs maintenance tasks against the attendance database.
package main

import (
	"fmt"
	"os"

	"github.com/juju/errors"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errors.ErrorStack(err))
		os.Exit(1)
	}
}
