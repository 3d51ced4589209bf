// Package aes128 implements the AES-128 forward cipher from its primitives.
//
// Only the encryption direction exists: counter mode never needs to invert
// the block function.
package aes128

// Double multiplies b by x in GF(2^8) modulo the AES polynomial 0x11B.
// It runs without data dependent branches.
func Double(b byte) byte {
	return (b << 1) ^ (0x1b & byte(int8(b)>>7))
}
