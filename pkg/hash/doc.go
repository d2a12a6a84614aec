// Package hash provides the xxHash3-128 content digest used to name
// stored blobs. The hash is non-cryptographic: collision resistance
// here is a performance/size tradeoff against SHA-256, not a security
// boundary, matching the store's non-cryptographic addressing intent.
package hash
