// Package signing produces the keyed request signatures the backend
// validates on every signed endpoint.
package signing

import "sort"

// secretRow is one labeled slice of the obfuscated key table. The label only
// exists to fix the assembly order.
type secretRow struct {
	label string
	bytes []byte
}

// secretTable is the obfuscated signing-key material. This is obfuscation,
// not secrecy: the key is recoverable from any client build, and the
// transformation exists solely so existing server deployments keep
// validating old clients. A new deployment should provision a real key
// instead.
var secretTable = []secretRow{
	{"00Td5aGs", []byte{0xB9, 0xCF, 0xB8, 0xC3, 0xFF, 0xFF, 0xF8, 0xEC}},
	{"00BXlbSr", []byte{0xE4, 0xBE, 0xE4, 0xDA, 0xCF, 0xE8, 0xBB, 0xC6}},
	{"02pHjgkI", []byte{0xDE, 0xE7, 0xC0, 0xD7, 0xBB, 0xDC, 0xBD, 0xEB}},
	{"ZNlTfl52", []byte{0xE4, 0xC6, 0xD8, 0xE4, 0xC5, 0xEA, 0xD7, 0xC4}},
	{"0NuSS9HF", []byte{0xE9, 0xC3, 0xBA, 0xE4, 0xD4, 0xDE, 0xB9, 0xCF}},
	{"aXoDggpZ", []byte{0xDD, 0xEA, 0xE3, 0xFA, 0xDE, 0xFF, 0xE6, 0xC0}},
	{"00auhZqY", []byte{0xCF, 0xD6, 0xBB, 0xB8, 0xC0, 0xD8, 0xE2, 0xCD}},
	{"00hLK10J", []byte{0xE0, 0xC7, 0xE4, 0xD4, 0xDB, 0xBD, 0xEB, 0xBF}},
}

const (
	secretBitMask = 0b10101010
	secretPadding = '\''
)

// SecretKey reassembles the signing key from the obfuscated table: rows are
// ordered by label descending, each byte is XORed with the bit mask and the
// salt character, each row is reversed, and trailing padding quotes are
// trimmed. The transformation must stay byte-identical to what the server
// expects.
func SecretKey(salt byte) string {
	rows := make([]secretRow, len(secretTable))
	copy(rows, secretTable)
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].label > rows[j].label
	})

	// Scalars above 0x7F must round-trip through their UTF-8 encoding, the
	// same way the server-side reference assembles the key.
	var decoded []rune
	for _, row := range rows {
		chunk := make([]rune, len(row.bytes))
		for i, b := range row.bytes {
			chunk[len(row.bytes)-1-i] = rune(b ^ secretBitMask ^ salt)
		}
		decoded = append(decoded, chunk...)
	}
	for len(decoded) > 0 && decoded[len(decoded)-1] == secretPadding {
		decoded = decoded[:len(decoded)-1]
	}

	return string(decoded)
}
