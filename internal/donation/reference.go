package donation

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

const (
	referencePrefix = "APEH"
	suffixAlphabet  = "0123456789abcdefghijklmnopqrstuvwxyz"
	suffixLength    = 9
)

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(cryptoSeed()))
)

func cryptoSeed() int64 {
	var buf [8]byte
	if _, err := cryptorand.Read(buf[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(buf[:]))
}

// NewReference produces a merchant reference of the form
// APEH-<millis>-<9 base36 chars>. It is generated once per donation
// attempt and reused across initialization, client verify and webhook
// correlation. Collisions are not detected here; the store's unique
// index on reference is the backstop.
func NewReference() string {
	suffix := make([]byte, suffixLength)
	rngMu.Lock()
	for i := range suffix {
		suffix[i] = suffixAlphabet[rng.Intn(len(suffixAlphabet))]
	}
	rngMu.Unlock()
	return fmt.Sprintf("%s-%d-%s", referencePrefix, time.Now().UnixMilli(), suffix)
}
