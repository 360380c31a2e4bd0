package main

import "github.com/Rorical/RoriGate/cmd"

func main() {
	cmd.Execute()
}
