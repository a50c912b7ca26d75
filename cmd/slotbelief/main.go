package main

import (
	"os"

	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
