// Package vowel holds reference formant values for the English monophthongs
// practised by the pronunciation trainer, and the chart geometry that places
// a measured F1/F2 pair on a two-dimensional vowel plot.
//
// The chart follows the IPA vowel quadrilateral: front vowels (high F2) on
// the left, back vowels on the right, close vowels (low F1) at the top and
// open vowels at the bottom.
package vowel
