package main

import "github.com/xHacka/logstat/internal/cmd"

func main() {
	cmd.Execute()
}
