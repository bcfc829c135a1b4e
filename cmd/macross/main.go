package main

import "github.com/rustyeddy/macross/internal/cli"

func main() {
	cli.Execute()
}
