package main

import "github.com/binsquare/soctop/internal/commands"

func main() {
	commands.Execute()
}
