package ocr

import "strings"

// Alphabet is the classifier's output order: digits then uppercase letters.
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// AlphabetSize is the number of probabilities a classifier returns.
const AlphabetSize = len(Alphabet)

// SymbolAt returns the symbol for a classifier output index.
func SymbolAt(i int) (string, bool) {
	if i < 0 || i >= AlphabetSize {
		return "", false
	}
	return Alphabet[i : i+1], true
}

// IndexOf returns the output index of symbol, or -1.
func IndexOf(symbol string) int {
	if len(symbol) != 1 {
		return -1
	}
	return strings.Index(Alphabet, strings.ToUpper(symbol))
}
