// ABOUTME: Entry point for the leadopp terminal client
// ABOUTME: Builds the command tree and maps failures to a non-zero exit
package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/harperreed/leadopp/cli"
)

// Populated at build time via -ldflags.
var version = "dev"

func build() string {
	if version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				return mv
			}
		}
	}
	return version
}

func main() {
	if err := cli.New(build()).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
