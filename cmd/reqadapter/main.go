package main

import "github.com/adamwoolhether/reqadapter/cmd/reqadapter/cmd"

func main() {
	cmd.Execute()
}
