// Command xrootd4j-server runs the xrootd data server.
package main

import (
	"fmt"
	"os"

	"github.com/gbehrmann/xrootd4j/cmd/xrootd4j-server/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
