package main

import "materialhub/cmd/cli"

func main() {
	cli.Execute()
}
