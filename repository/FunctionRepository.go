package repository

import (
	"fmt"
	"math/rand"
	"time"
)

// GenerateReferenceCode produces a human-facing reference like "BD-48213"
// for records acknowledged locally while the ERP is down. These references
// are advisory only; the ERP assigns the real one once it is reachable.
func GenerateReferenceCode(prefix string) string {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	number := rng.Intn(90000) + 10000

	return fmt.Sprintf("%s-%d", prefix, number)
}
