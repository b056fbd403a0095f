// Package main is the entry point for the arenastats tool, which tracks
// pairwise team battle outcomes and serves ranked matchup statistics.
package main

import "github.com/rinko/go-arena-stats/cmd"

func main() {
	cmd.Execute()
}
