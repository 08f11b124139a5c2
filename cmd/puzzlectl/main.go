// Command puzzlectl manages stored puzzles: validation, upload, daily
// rotation and photo extraction.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
