// Package scalar provides the arbitrary-precision numeric types used by
// store values: BigInt over math/big and BigDecimal over IEEE 754 decimal128
// semantics, plus a hex-rendered Bytes type. Store encodings for both numeric
// types are UTF-8 decimal strings, with empty bytes decoding to zero.
package scalar
