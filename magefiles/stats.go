//go:build mage

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

// Stats prints Go lines of code per package and word counts of the
// Markdown documents at the repository root as one JSON line.
func Stats() error {
	prod := map[string]int{}
	var testLines int

	err := filepath.WalkDir(".", func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), "_") || path == "vendor" || path == ".git" || path == binaryDir || path == "magefiles" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		n, err := countLines(path)
		if err != nil {
			return nil
		}
		if strings.HasSuffix(path, "_test.go") {
			testLines += n
			return nil
		}
		prod[filepath.Dir(path)] += n
		return nil
	})
	if err != nil {
		return err
	}

	docs, err := filepath.Glob("*.md")
	if err != nil {
		return err
	}
	docWords := 0
	for _, path := range docs {
		n, err := countWordsInFile(path)
		if err != nil {
			continue
		}
		docWords += n
	}

	total := 0
	pkgs := make([]string, 0, len(prod))
	for pkg, n := range prod {
		pkgs = append(pkgs, pkg)
		total += n
	}
	sort.Strings(pkgs)

	record := map[string]any{
		"go_loc_prod": total,
		"go_loc_test": testLines,
		"go_loc":      total + testLines,
		"doc_words":   docWords,
		"packages":    prod,
	}
	line, err := json.Marshal(record)
	if err != nil {
		return err
	}
	fmt.Println(string(line))
	for _, pkg := range pkgs {
		fmt.Printf("  %-24s %6d\n", pkg, prod[pkg])
	}
	return nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}

func countWordsInFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return len(strings.FieldsFunc(string(data), unicode.IsSpace)), nil
}
