// Package compress wraps zstd with the threshold and magic-number
// detection this store needs to treat compression as an invisible,
// reversible storage detail rather than part of its wire contract: a
// GET always returns exactly the bytes a prior PUT sent, whether or not
// the stored form was compressed.
package compress
