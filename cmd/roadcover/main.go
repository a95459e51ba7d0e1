package main

import "roadcover/cmd/roadcover/commands"

func main() {
	commands.Execute()
}
