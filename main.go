package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"ledger-swap/cmd"
)

func main() {
	// A .env file is optional; real deployments configure through the
	// environment or ~/.ledger-swap.yaml.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
