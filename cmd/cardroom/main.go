package main

import "github.com/mcoot/cardroom/internal/cli"

func main() {
	cli.Execute()
}
