package main

import (
	"fmt"
	"os"

	"github.com/spiffcs/devpulse/cmd"
)

func main() {
	if err := cmd.New().Execute(); err != nil {
		if !cmd.IsReported(err) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
