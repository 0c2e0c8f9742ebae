package main

import "github.com/rahul/slotwatch/internal/cli"

func main() {
	cli.Execute()
}
