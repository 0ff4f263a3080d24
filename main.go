package main

import "veracity/cmd"

func main() {
	cmd.Execute()
}
