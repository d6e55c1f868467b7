package main

import "coursegen/cmd"

func main() {
	cmd.Execute()
}
