package main

import (
	"fmt"
	"os"

	"github.com/unclebandit/campaigner/internal/cli"
)

func main() {
	rootCmd := cli.NewRootCmd(cli.Options{})
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
