package main

import "github.com/Uke-Messaging/uke-pallet/internal/cli"

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	cli.Execute(version, commit)
}
