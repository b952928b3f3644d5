// Package main provides relayclient, a terminal client for the chess relay.
package main

import "github.com/cory-johannsen/chessrelay/internal/cli"

func main() {
	cli.Execute()
}
