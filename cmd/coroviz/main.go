package main

import "github.com/corolab/coroviz/cmd/coroviz/cmd"

func main() {
	cmd.Execute()
}
