package main

import "github.com/finthetix/sidecar/cmd"

func main() {
	cmd.Execute()
}
