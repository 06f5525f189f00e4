// This program inspects and drives a running mesh simulation.
package main

import "github.com/ardanlabs/powmesh/app/tooling/meshctl/cmd"

func main() {
	cmd.Execute()
}
