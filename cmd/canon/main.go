package main

import "github.com/MrSnakeDoc/canon/internal/cli"

func main() {
	cli.Execute()
}
