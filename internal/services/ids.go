package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	postIDPrefix    = "post"
	commentIDPrefix = "comment"
	randomIDLength  = 9
	base36Alphabet  = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// newRecordID returns "{prefix}_{unix millis}_{random base36}".
func newRecordID(prefix string, now time.Time) (string, error) {
	suffix, err := randomBase36(randomIDLength)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_%d_%s", prefix, now.UnixMilli(), suffix), nil
}

func randomBase36(n int) (string, error) {
	max := big.NewInt(int64(len(base36Alphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = base36Alphabet[idx.Int64()]
	}
	return string(buf), nil
}
