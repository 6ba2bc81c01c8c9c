// paramcheck validates experiment parameter documents without starting the
// daemon. Exit codes: 0 all files valid, 1 at least one file invalid, 2 usage.
package main

import (
	"fmt"
	"os"

	"github.com/beamtime/hyperion/pkg/params"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const usageExitCode = 2

func main() {
	flags := pflag.NewFlagSet("paramcheck", pflag.ContinueOnError)
	quiet := flags.BoolP("quiet", "q", false, "only report failures")
	workers := flags.IntP("workers", "w", 4, "number of files to check concurrently")

	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: paramcheck [flags] <file>...\n")
		flags.PrintDefaults()
	}

	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(usageExitCode)
	}

	files := flags.Args()
	if len(files) == 0 {
		flags.Usage()
		os.Exit(usageExitCode)
	}

	if *workers < 1 {
		*workers = 1
	}

	results := make([]error, len(files))

	var eg errgroup.Group
	eg.SetLimit(*workers)

	for i, file := range files {
		eg.Go(func() error {
			_, err := params.FromFile(file)
			results[i] = err
			return nil
		})
	}

	_ = eg.Wait()

	failed := 0
	for i, file := range files {
		if results[i] != nil {
			failed++
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", file, results[i])
			continue
		}
		if !*quiet {
			fmt.Printf("OK   %s\n", file)
		}
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d files invalid\n", failed, len(files))
		os.Exit(1)
	}
}
