package main

import "docqa/cli"

func main() {
	cli.Execute()
}
