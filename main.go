package main

import "karaokebox/cmd"

func main() {
	cmd.Execute()
}
