package main

import (
	"os"

	"github.com/semantalytics/jena-temporal/cmd/temporal"
)

func main() {
	if err := temporal.Execute(); err != nil {
		os.Exit(1)
	}
}
