// Package main provides the sbtminter CLI: an HTTP control surface for minting
// soulbound tokens plus one-shot mint and network commands.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
