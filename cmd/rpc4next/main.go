package main

import "github.com/watanabe-1/rpc4next-sub000/cmd/rpc4next/commands"

func main() {
	commands.Execute()
}
