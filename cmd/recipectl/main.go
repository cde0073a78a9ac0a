package main

import "github.com/pageza/recipelens/backend/internal/cli"

func main() {
	cli.Execute()
}
