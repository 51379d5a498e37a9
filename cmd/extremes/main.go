package main

import "hydro-extremes/internal/cli"

func main() {
	cli.Execute()
}
