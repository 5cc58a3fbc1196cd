package main

import "github.com/petermazzocco/bboard/cmd/api/commands"

func main() {
	commands.Execute()
}
