// Package main provides a pointer to the CSOPESY-GO entry point.
// CSOPESY-GO is a multi-core CPU scheduler and memory manager emulator.
//
// For the interactive CLI, use: go run ./cmd/csopesy
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("CSOPESY-GO - CPU Scheduler & Memory Manager Emulator")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/csopesy' for the interactive operator console.")
	fmt.Println("Run 'go run ./cmd/loadgen' for a headless stress-test run.")
	fmt.Println("Run 'go run ./cmd/profile' to profile a headless scheduler run.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: you provided arguments. Use 'go run ./cmd/csopesy' instead.")
	}
}
