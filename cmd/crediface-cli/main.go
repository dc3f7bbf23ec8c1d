package main

import "github.com/credicefi/crediface/cmd/cli"

// main 是 crediface-cli 命令行工具的入口点。
func main() {
	cli.Execute()
}
