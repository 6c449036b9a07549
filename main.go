package main

import "github.com/giantswarm/mcp-tomcat/cmd"

// version is set during build with -ldflags.
var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
