package main

import "github.com/oshokin/sleepwake/cmd/sleepwake-sim/cmd"

func main() {
	cmd.Execute()
}
