package main

import cmd "github.com/kodesmith/searchcore/internal/cli"

func main() {
	cmd.Execute()
}
