package main

import "github.com/gengirish/database-connection-pool/cmd/poolcli/cmd"

func main() {
	cmd.Execute()
}
