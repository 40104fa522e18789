package main

import "github.com/parleydev/parley/cmd"

func main() {
	cmd.Execute()
}
