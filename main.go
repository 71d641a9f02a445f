package main

import "github.com/vzalabardo/tomorrowmanyers/cmd"

func main() {
	cmd.Run()
}
