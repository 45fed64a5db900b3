package main

import "continuous-futures/internal/cli"

func main() {
	cli.Execute()
}
