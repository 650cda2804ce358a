package main

import "github.com/fairwaysim/fairwaysim/cmd"

func main() {
	cmd.Execute()
}
