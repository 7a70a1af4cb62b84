package provider

import (
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	yearRe     = regexp.MustCompile(`(19\d{2}|20\d{2})`)
	nonWordRe  = regexp.MustCompile(`[^A-Za-z0-9_ ]`)
	splitRe    = regexp.MustCompile(`[_\- ]+`)
	riverWords = map[string]bool{"rio": true, "river": true}
)

// DetectYear returns the first 19xx or 20xx found in the base name of path.
func DetectYear(path string) (int, bool) {
	m := yearRe.FindString(filepath.Base(path))
	if m == "" {
		return 0, false
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return y, true
}

// DetectRiverName guesses the river name from snapshot file names: years and
// punctuation are stripped, the words "rio" and "river" dropped and the
// longest remaining candidate wins.
func DetectRiverName(paths ...string) string {
	var candidates []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		name = yearRe.ReplaceAllString(name, "")
		name = nonWordRe.ReplaceAllString(name, " ")

		var tokens []string
		for _, t := range splitRe.Split(name, -1) {
			if t == "" || riverWords[strings.ToLower(t)] {
				continue
			}
			tokens = append(tokens, t)
		}
		if len(tokens) > 0 {
			candidates = append(candidates, strings.Join(tokens, " "))
		}
	}
	if len(candidates) == 0 {
		return ""
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i]) > len(candidates[j])
	})
	return strings.Join(strings.Fields(candidates[0]), " ")
}

// FileSafe turns a river name into a token usable in output file names.
func FileSafe(name string) string {
	return strings.Join(strings.Fields(name), "_")
}
