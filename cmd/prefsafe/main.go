package main

import (
	"fmt"
	"os"

	"github.com/ashgrove-systems/prefsafe/internal/app"
)

func main() {
	if err := app.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
