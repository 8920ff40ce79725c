// Package main is the gallery resolver executable.
package main

import "os"

func main() {
	if err := newRootCmd().execute(); err != nil {
		os.Exit(1)
	}
}
