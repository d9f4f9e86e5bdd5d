// Command csopesy is the interactive operator console for the CPU
// scheduler and memory manager emulator: `initialize`, `scheduler-start`/
// `scheduler-stop`, `screen -s/-c/-r/-ls`, `report-util`, `process-smi`,
// `vmstat`, grounded on original_source/menu.cpp's menuSession loop.
package main

import "github.com/cs-emu/csopesy/cli"

func main() {
	cli.NewStdio().Run()
}
