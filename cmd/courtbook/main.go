package main

import "github.com/example/court-booker/cmd"

func main() {
	cmd.Execute()
}
