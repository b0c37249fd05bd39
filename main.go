package main

import "github.com/Rorical/whitelist-dapp/cmd"

func main() {
	cmd.Execute()
}
