// Command mealctl is the operator CLI for Mealboard.
package main

import (
	"fmt"
	"os"

	"github.com/keyxmakerx/mealboard/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
