// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package draft

import (
	"regexp"
	"sort"
	"strconv"
)

// numericCiteRe matches numeric citations like [1], [2], [12].
var numericCiteRe = regexp.MustCompile(`\[(\d+)\]`)

// Citations returns the distinct numeric citations in text, in order of
// first appearance.
func Citations(text string) []int {
	seen := make(map[int]bool)
	var out []int
	for _, m := range numericCiteRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// UnknownCitations returns, in ascending order, the citation numbers in text
// that fall outside 1..nSources.
func UnknownCitations(text string, nSources int) []int {
	var unknown []int
	for _, n := range Citations(text) {
		if n < 1 || n > nSources {
			unknown = append(unknown, n)
		}
	}
	sort.Ints(unknown)
	return unknown
}
