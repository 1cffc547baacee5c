package main

import "github.com/peekknuf/dqsweep/cmd"

func main() {
	cmd.Execute()
}
