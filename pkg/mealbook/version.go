// Package mealbook holds build-level metadata for the mealbook module.
package mealbook

// Version is the semantic version of the mealbook CLI and library.
const Version = "0.3.0"
