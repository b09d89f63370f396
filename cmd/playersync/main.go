package main

import "github.com/mcoot/playersync/internal/cli"

func main() {
	cli.Execute()
}
