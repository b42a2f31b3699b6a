// Command formant extracts and tracks vowel formants.
//
// Usage:
//
//	formant [command] [flags]
//
// Examples:
//
//	formant analyze --selection loudest --interpolate take1.wav take2.wav
//	formant synth --vowel AA --f0 110 --out aa.wav
//	formant serve --listen :8080
//	formant vowels -o json
//	formant windows --fft-size 4096
package main

import (
	"fmt"
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
