package main

import "qrshare/internal/cli"

func main() {
	cli.Execute()
}
