package main

import "github.com/blueberrycoding/bbmp-launcher/cmd/bbmp-launcher/cmd"

func main() {
	cmd.Execute()
}
