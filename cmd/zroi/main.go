// Command zroi inspects Zarr arrays and runs crop and bin pipelines on them.
package main

import (
	"fmt"
	"os"

	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
