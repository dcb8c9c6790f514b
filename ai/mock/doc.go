// Package mock provides test double implementations of the ai interfaces.
//
// The mocks allow tests to run without external embedding services and
// enable controlled, deterministic behavior: the default embedder derives a
// stable vector from an FNV hash of the input text, so identical text always
// embeds identically across runs.
package mock
