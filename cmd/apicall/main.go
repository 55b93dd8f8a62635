// Command apicall sends a single HTTP request and prints the classified
// result as JSON.
package main

import (
	"os"

	"github.com/adamwoolhether/apibuilder/cmd/apicall/app"
)

func main() {
	if err := app.NewCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
