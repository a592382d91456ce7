package main

import "icreports/cmd/icreports/cmd"

func main() {
	cmd.Execute()
}
