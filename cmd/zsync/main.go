package main

import "github.com/dl-alexandre/zsync/internal/cli"

func main() {
	cli.Execute()
}
