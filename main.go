package main

import "issuepilot/cmd"

func main() {
	cmd.Execute()
}
