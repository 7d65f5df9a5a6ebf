package payment

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const orderAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewOrderID returns ORDER_<unix-ms>_<7 base36 chars>.
func NewOrderID(now time.Time) string {
	suffix := make([]byte, 7)
	max := big.NewInt(int64(len(orderAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			n = big.NewInt(now.UnixNano() % int64(len(orderAlphabet)))
		}
		suffix[i] = orderAlphabet[n.Int64()]
	}
	return fmt.Sprintf("ORDER_%d_%s", now.UnixMilli(), suffix)
}
