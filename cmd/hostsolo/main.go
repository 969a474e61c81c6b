package main

import "github.com/hostsolo/hostsolo/internal/cli"

func main() {
	cli.Execute()
}
