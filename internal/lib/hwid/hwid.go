// Package hwid отвечает за хэширование аппаратного отпечатка клиента.
// Отпечаток никогда не хранится в открытом виде: перед записью он
// хэшируется sha256 и усекается до фиксированной ширины.
package hwid

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashWidth ширина хранимого хэша в символах hex.
const HashWidth = 32

// Hash возвращает усечённый sha256-хэш аппаратного отпечатка.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:HashWidth]
}
