// Command kestrel is the entry point for the kestrel task runner.
package main

import (
	"os"

	"github.com/kestrelbuild/kestrel/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
