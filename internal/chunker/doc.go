// Package chunker splits blob content into bounded, overlapping text spans
// with source-location metadata.
//
// Chunking is a pure function of content and parameters: the same input
// always yields the same chunks. Boundaries fall at line ends so a chunk
// never splits inside a line of source; consecutive chunks overlap by a
// configured token window, capped at half the chunk budget, and together
// cover the blob with no gaps.
package chunker
