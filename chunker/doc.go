// Package chunker splits document text into overlapping character windows.
//
// The window size is the authoritative control knob for chunk length;
// provider tokenization may diverge from the rune count, so the bound is
// soft from the provider's point of view but exact here.
package chunker
