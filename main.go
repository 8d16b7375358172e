package main

import "github.com/lunavale/selene/cmd"

func main() {
	cmd.Execute()
}
