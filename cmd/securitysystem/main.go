package main

import "github.com/bdrydyk/homebridge-securitysystem/cmd/securitysystem/cmd"

func main() {
	cmd.Execute()
}
