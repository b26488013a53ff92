package main

import "github.com/yujm888/finrag/cmd"

func main() {
	cmd.Execute()
}
