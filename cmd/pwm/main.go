package main

import (
	"context"
	"os"
)

// Version is set during build using ldflags.
var Version = "dev"

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}
