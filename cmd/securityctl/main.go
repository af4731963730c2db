package main

import "github.com/bdrydyk/homebridge-securitysystem/cmd/securityctl/cmd"

func main() {
	cmd.Execute()
}
