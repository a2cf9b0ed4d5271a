package main

import "github.com/qvet/qvet/cmd"

func main() {
	cmd.Execute()
}
