package utils

import (
	"crypto/md5"
	"encoding/hex"
)

// CalculateDataMD5 returns the lowercase hex MD5 digest of data
func CalculateDataMD5(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// CalculateStringMD5 returns the lowercase hex MD5 digest of s
func CalculateStringMD5(s string) string {
	return CalculateDataMD5([]byte(s))
}
