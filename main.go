package main

import "filament-sync/cmd"

func main() {
	cmd.Execute()
}
