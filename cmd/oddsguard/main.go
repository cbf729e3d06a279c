package main

import "oddsguard/internal/cli"

func main() {
	cli.Execute()
}
