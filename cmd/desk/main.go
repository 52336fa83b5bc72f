// Command desk manages the records of a marketplace back office from the
// terminal.
package main

import "github.com/mesh-intelligence/marketdesk/internal/cli"

func main() {
	cli.Execute()
}
