package main

import (
	"fmt"
	"os"

	"github.com/rom9/multirec/cmd"
)

func main() {
	settings := &cmd.Settings{}
	rootCmd := cmd.RootCommand(settings)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
