// Package main provides the mealbook CLI.
package main

import "github.com/mesh-intelligence/mealbook/internal/cli"

func main() {
	cli.Execute()
}
