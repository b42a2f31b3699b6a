package vowel

import (
	"fmt"
	"strings"
)

// Vowel is one reference vowel.
type Vowel struct {
	// Code is the ARPAbet symbol, for example "IY".
	Code string `json:"code" yaml:"code"`
	// IPA is the matching IPA symbol.
	IPA string `json:"ipa" yaml:"ipa"`
	// Word is the practice word containing the vowel.
	Word string `json:"word" yaml:"word"`
	// F1, F2 and F3 are mean adult formant frequencies in Hz.
	F1 float64 `json:"f1" yaml:"f1"`
	F2 float64 `json:"f2" yaml:"f2"`
	F3 float64 `json:"f3" yaml:"f3"`
	// Column and Row are the zero-based chart cell of the vowel.
	Column int `json:"column" yaml:"column"`
	Row    int `json:"row" yaml:"row"`
}

// Formant values from the UCL Wells table of RP vowels.
var table = []Vowel{
	{Code: "IY", IPA: "i", Word: "beet", F1: 285, F2: 2373, F3: 3088, Column: 0, Row: 0},
	{Code: "IH", IPA: "ɪ", Word: "bit", F1: 356, F2: 2098, F3: 2696, Column: 3, Row: 1},
	{Code: "EH", IPA: "ɛ", Word: "bet", F1: 569, F2: 1965, F3: 2636, Column: 4, Row: 4},
	{Code: "AE", IPA: "æ", Word: "bat", F1: 748, F2: 1746, F3: 2460, Column: 5, Row: 5},
	{Code: "AA", IPA: "ɑ", Word: "bot", F1: 710, F2: 1100, F3: 2540, Column: 6, Row: 6},
	{Code: "AH", IPA: "ʌ", Word: "but", F1: 677, F2: 1083, F3: 2340, Column: 12, Row: 4},
	{Code: "UH", IPA: "ʊ", Word: "book", F1: 376, F2: 950, F3: 2440, Column: 11, Row: 1},
	{Code: "UW", IPA: "u", Word: "boot", F1: 309, F2: 939, F3: 2320, Column: 14, Row: 0},
	{Code: "AO", IPA: "ɔ", Word: "bought", F1: 599, F2: 891, F3: 2605, Column: 14, Row: 4},
}

// All returns a copy of the reference table in practice order.
func All() []Vowel {
	return append([]Vowel(nil), table...)
}

// Lookup finds a vowel by ARPAbet code, IPA symbol or practice word,
// ignoring case.
func Lookup(key string) (Vowel, error) {
	k := strings.TrimSpace(key)
	for _, v := range table {
		if strings.EqualFold(v.Code, k) || v.IPA == k || strings.EqualFold(v.Word, k) {
			return v, nil
		}
	}
	return Vowel{}, fmt.Errorf("unknown vowel %q", key)
}

// Codes returns the ARPAbet codes in practice order.
func Codes() []string {
	out := make([]string, len(table))
	for i, v := range table {
		out[i] = v.Code
	}
	return out
}
