// Package main is the spider launcher binary. See the cmd package for the
// commands it exposes.
package main

import "github.com/JakeFAU/performer-crawler/cmd"

func main() {
	cmd.Execute()
}
