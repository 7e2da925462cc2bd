package main

import "github.com/nextlevelbuilder/hackhero/cmd"

func main() {
	cmd.Execute()
}
