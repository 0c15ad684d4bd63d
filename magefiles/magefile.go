//go:build mage

// Package main provides build targets for the mealbook project using Mage.
//
// Usage:
//
//	mage build          Compile the mealbook binary to bin/
//	mage test:all       Run all tests
//	mage test:race      Run all tests with the race detector
//	mage test:cover     Run all tests and write coverage.out
//	mage lint           Run golangci-lint
//	mage serve          Build and start the HTTP API
//	mage clean          Remove build artifacts
//	mage install        Install mealbook to GOPATH/bin
//	mage stats          Print Go LOC and documentation word counts
package main

const (
	binGo      = "go"
	binaryName = "mealbook"
	binaryDir  = "bin"
	cmdDir     = "./cmd/mealbook"
)
