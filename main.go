package main

import (
	"os"

	"github.com/JobsSteve/openvpn-adapter/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
