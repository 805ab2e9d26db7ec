package main

import "github.com/markb/pgfngen/cmd"

func main() {
	cmd.Execute()
}
