// Package main contains the entrypoint for running an ion-stats agent.
package main

import (
	"fmt"
	"os"

	"github.com/pion/ion-stats/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
