package main

import "github.com/arturoeanton/go-rag-qa/internal/cli"

func main() {
	cli.Execute()
}
