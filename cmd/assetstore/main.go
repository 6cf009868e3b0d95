// Command assetstore stores versioned media package snapshots and their
// properties and queries them from the command line.
package main

import "github.com/mesh-intelligence/assetstore/internal/cli"

func main() {
	cli.Execute()
}
