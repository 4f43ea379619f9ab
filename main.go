package main

import "github.com/feescope/feescope/cmd/feescope"

func main() {
	feescope.Execute()
}
