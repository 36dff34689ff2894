package xid

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const saleAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// New returns a sale identifier of the form PREFIX-XXXXXX where the suffix
// is six characters drawn from [0-9A-Z].
func New(prefix string) string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%06d", prefix, time.Now().UnixNano()%1000000)
	}
	for i, b := range buf {
		buf[i] = saleAlphabet[int(b)%len(saleAlphabet)]
	}
	return prefix + "-" + string(buf)
}

// ProductID returns a millisecond-stamped product identifier.
func ProductID() string {
	return fmt.Sprintf("PRD-%d", time.Now().UnixMilli())
}

// Barcode returns a random six-digit numeric barcode. Uniqueness is the
// caller's problem.
func Barcode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return fmt.Sprintf("%06d", time.Now().UnixNano()%1000000)
	}
	return fmt.Sprintf("%06d", n.Int64())
}
