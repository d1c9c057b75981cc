// Base58 encoding/decoding for NodeID, Bitcoin-style alphabet, avoiding the
// visually ambiguous characters (0, O, I, l). No external dependency.
package types

import (
	"errors"
	"math/big"
)

// base58Alphabet is the Bitcoin-style alphabet.
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var (
	// ErrInvalidBase58Char is returned when decoding encounters a
	// character outside the alphabet.
	ErrInvalidBase58Char = errors.New("invalid base58 character")

	base58AlphabetMap = func() map[rune]int64 {
		m := make(map[rune]int64)
		for i, c := range base58Alphabet {
			m[c] = int64(i)
		}
		return m
	}()

	bigRadix = big.NewInt(58)
	bigZero  = big.NewInt(0)
)

// Base58Encode encodes a byte slice as a Base58 string.
func Base58Encode(input []byte) string {
	if len(input) == 0 {
		return ""
	}

	leadingZeros := 0
	for _, b := range input {
		if b != 0 {
			break
		}
		leadingZeros++
	}

	x := new(big.Int).SetBytes(input)

	result := make([]byte, 0, len(input)*136/100+1)
	mod := new(big.Int)

	for x.Cmp(bigZero) > 0 {
		x.DivMod(x, bigRadix, mod)
		result = append(result, base58Alphabet[mod.Int64()])
	}

	for i := 0; i < leadingZeros; i++ {
		result = append(result, '1')
	}

	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}

	return string(result)
}

// Base58Decode decodes a Base58 string back into a byte slice.
func Base58Decode(input string) ([]byte, error) {
	if len(input) == 0 {
		return nil, nil
	}

	leadingOnes := 0
	for _, c := range input {
		if c != '1' {
			break
		}
		leadingOnes++
	}

	x := new(big.Int)
	for _, c := range input {
		val, ok := base58AlphabetMap[c]
		if !ok {
			return nil, ErrInvalidBase58Char
		}
		x.Mul(x, bigRadix)
		x.Add(x, big.NewInt(val))
	}

	decoded := x.Bytes()

	result := make([]byte, leadingOnes+len(decoded))
	copy(result[leadingOnes:], decoded)

	return result, nil
}
