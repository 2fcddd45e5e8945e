package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/tasosbeast/bill-split-sub001/pkg/logging"
)

func main() {
	// Best effort: a missing .env is the normal case.
	_ = godotenv.Load()
	logging.Setup()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
