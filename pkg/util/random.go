package util

import (
	"math/rand"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// RandomBase36 生成指定长度的小写 base36 随机串
func RandomBase36(length int) string {
	return randomFrom(base36, length)
}

func randomFrom(charset string, length int) string {
	if length <= 0 {
		return ""
	}
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
