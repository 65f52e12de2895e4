package main

import "github.com/endorses/lcdissect/cmd"

func main() {
	cmd.Execute()
}
