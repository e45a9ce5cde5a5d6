package utils

import (
	"crypto/rand"
	"math/big"
)

const codeCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateCode creates a random lowercase alphanumeric code
func GenerateCode(length int) string {
	result := make([]byte, length)

	for i := range result {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		result[i] = codeCharset[n.Int64()]
	}

	return string(result)
}
