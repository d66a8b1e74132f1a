package main

import "github.com/dbower44022/CRMExtender-sub006/internal/cli"

func main() {
	cli.Execute()
}
