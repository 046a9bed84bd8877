package main

import "github.com/oshokin/sleepwake/cmd/sleepwake-bench/cmd"

func main() {
	cmd.Execute()
}
