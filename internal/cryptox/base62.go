package cryptox

import (
	"errors"
	"math/big"
)

const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

var (
	errBase62Char = errors.New("invalid base62 character")
	big62         = big.NewInt(62)
	base62Index   = func() [256]int8 {
		var idx [256]int8
		for i := range idx {
			idx[i] = -1
		}
		for i := 0; i < len(base62Alphabet); i++ {
			idx[base62Alphabet[i]] = int8(i)
		}
		return idx
	}()
)

// encodeBase62 treats b as a big-endian integer. Each leading zero byte is
// emitted as a leading '0' so the encoding round-trips exactly.
func encodeBase62(b []byte) string {
	zeros := 0
	for zeros < len(b) && b[zeros] == 0 {
		zeros++
	}

	n := new(big.Int).SetBytes(b[zeros:])
	mod := new(big.Int)
	digits := make([]byte, 0, len(b)*4/3+1)
	for n.Sign() > 0 {
		n.DivMod(n, big62, mod)
		digits = append(digits, base62Alphabet[mod.Int64()])
	}
	for i := 0; i < zeros; i++ {
		digits = append(digits, '0')
	}

	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}

func decodeBase62(s string) ([]byte, error) {
	zeros := 0
	for zeros < len(s) && s[zeros] == '0' {
		zeros++
	}

	n := new(big.Int)
	d := new(big.Int)
	for i := zeros; i < len(s); i++ {
		v := base62Index[s[i]]
		if v < 0 {
			return nil, errBase62Char
		}
		n.Mul(n, big62)
		n.Add(n, d.SetInt64(int64(v)))
	}

	body := n.Bytes()
	out := make([]byte, zeros+len(body))
	copy(out[zeros:], body)
	return out, nil
}
