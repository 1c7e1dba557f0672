package main

import "github.com/innovinitylabs/onchain-rug-sub004/internal/cli"

func main() {
	cli.Execute()
}
