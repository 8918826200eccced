package main

import "github.com/bryanchriswhite/DisplaySwitcher/cmd/displayswitcher/commands"

func main() {
	commands.Execute()
}
