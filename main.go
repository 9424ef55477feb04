package main

import "appserver/cmd"

func main() {
	cmd.Execute()
}
