package main

import "github.com/OctopusDeploy/Shellfish/internal/cli"

func main() {
	cli.Execute()
}
