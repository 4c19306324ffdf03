package main

import "github.com/KaramelBytes/solardash-cli/cmd"

func main() {
	cmd.Execute()
}
