// Command filterc validates rules files and compiles filter lists offline.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "filterc:", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "filterc",
		Usage: "Validate filter rules and compile filter lists to search queries",
		Commands: []*cli.Command{
			checkCommand(),
			compileCommand(),
			versionCommand(),
		},
	}
}
