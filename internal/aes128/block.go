package aes128

// The state is a 4x4 byte matrix. A row is four contiguous bytes
// state[4i:4i+4]; column c is the strided set state[c], state[c+4],
// state[c+8], state[c+12]. shiftColumns and mixRows must agree on this
// addressing or the output silently diverges from AES.

// Encrypt transforms state in place under the schedule s.
func Encrypt(s *Schedule, state *[BlockSize]byte) {
	addRoundKey(state, &s[0])
	for r := 1; r < Rounds-1; r++ {
		subBytes(state)
		shiftColumns(state)
		mixRows(state)
		addRoundKey(state, &s[r])
	}
	subBytes(state)
	shiftColumns(state)
	addRoundKey(state, &s[Rounds-1])
}

func addRoundKey(state, k *[BlockSize]byte) {
	for i := range state {
		state[i] ^= k[i]
	}
}

func subBytes(state *[BlockSize]byte) {
	for i, b := range state {
		state[i] = sbox[b]
	}
}

// shiftColumns rotates column c left by c positions.
func shiftColumns(state *[BlockSize]byte) {
	for c := 1; c < 4; c++ {
		var col [4]byte
		for k := 0; k < 4; k++ {
			col[k] = state[c+4*((k+c)%4)]
		}
		for k := 0; k < 4; k++ {
			state[c+4*k] = col[k]
		}
	}
}

// mixRows multiplies every row by the fixed matrix
//
//	2 3 1 1
//	1 2 3 1
//	1 1 2 3
//	3 1 1 2
//
// where 3x is computed as gal2[x] ^ x.
func mixRows(state *[BlockSize]byte) {
	for i := 0; i < BlockSize; i += 4 {
		a0, a1, a2, a3 := state[i], state[i+1], state[i+2], state[i+3]
		state[i] = gal2[a0] ^ gal2[a1] ^ a1 ^ a2 ^ a3
		state[i+1] = a0 ^ gal2[a1] ^ gal2[a2] ^ a2 ^ a3
		state[i+2] = a0 ^ a1 ^ gal2[a2] ^ gal2[a3] ^ a3
		state[i+3] = gal2[a0] ^ a0 ^ a1 ^ a2 ^ gal2[a3]
	}
}
