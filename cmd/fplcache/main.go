// Command fplcache inspects the snapshot archive from the shell.
//
// Usage:
//
//	go run ./cmd/fplcache index
//	go run ./cmd/fplcache timeseries --code 118748
//	go run ./cmd/fplcache search --q salah
//	go run ./cmd/fplcache schema --max-files 20 --out schema.json
package main

import (
	"os"

	"fpl-cache-api/cmd/fplcache/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
