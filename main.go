package main

import "github.com/jmehdipour/domofon-gateway/cmd"

func main() {
	cmd.Execute()
}
