package main

import "github.com/mkarvela/davsync/cmd"

func main() {
	cmd.Execute()
}
