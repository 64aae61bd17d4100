// Package ir provides the canonical value representation used to record
// call arguments and results.
//
// Recorded inputs and outputs must render identically every time the same
// call is made, on any machine, so replay output can be compared byte for
// byte. Values are converted from arbitrary Go values into a sealed set of
// IR types and serialized as canonical JSON:
//
//   - Object keys sorted by UTF-16 code units (RFC 8785)
//   - No HTML escaping, no insignificant whitespace
//   - Strings NFC normalized
//   - Floats always carry a decimal point or exponent so 3.0 never reads as 3
//
// ir imports nothing internal.
package ir
