package main

import "github.com/dh1tw/streamMixer/cmd"

func main() {
	cmd.Execute()
}
