package main

import "github.com/jfmyers9/recently/cmd"

func main() {
	cmd.Execute()
}
