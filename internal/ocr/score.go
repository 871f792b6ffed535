package ocr

import (
	"strings"
)

// Similarity scores a read plate against the true plate, from 0 (nothing in
// common) to 1 (identical after normalization). It blends the longest common
// subsequence, which rewards order, with the share of true characters
// present, which forgives a fused or missing glyph.
func Similarity(read, truth string) float64 {
	readNorm := NormalizePlate(read)
	truthNorm := NormalizePlate(truth)

	if truthNorm == "" {
		if readNorm == "" {
			return 1.0
		}
		return 0.0
	}
	if readNorm == truthNorm {
		return 1.0
	}

	lcs := longestCommonSubsequence(readNorm, truthNorm)
	lcsScore := float64(lcs) / float64(max(len(readNorm), len(truthNorm)))

	return 0.6*lcsScore + 0.4*characterOverlap(readNorm, truthNorm)
}

// NormalizePlate uppercases s and drops everything outside Alphabet, so
// "ab-123 c" compares equal to "AB123C".
func NormalizePlate(s string) string {
	s = strings.ToUpper(s)
	var result strings.Builder
	for _, r := range s {
		if strings.ContainsRune(Alphabet, r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// longestCommonSubsequence calculates LCS length.
func longestCommonSubsequence(a, b string) int {
	m, n := len(a), len(b)
	if m == 0 || n == 0 {
		return 0
	}

	// Two rows are enough.
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

// characterOverlap is the fraction of truth characters found in read,
// counting multiplicity.
func characterOverlap(read, truth string) float64 {
	if len(truth) == 0 {
		return 0.0
	}

	available := make(map[rune]int)
	for _, r := range read {
		available[r]++
	}

	matched := 0
	for _, r := range truth {
		if available[r] > 0 {
			matched++
			available[r]--
		}
	}

	return float64(matched) / float64(len(truth))
}
