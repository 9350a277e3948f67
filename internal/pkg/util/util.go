package util

import (
	"crypto/rand"
	"fmt"
	"time"
)

// codeCharset deliberately omits characters that are easy to misread on a
// printed or scanned ticket (0/O, 1/I/L).
const codeCharset = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

func GenerateTimestampWithPrefix(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// GenerateCode returns a random external-facing code of the given length,
// drawn from the restricted charset. Uniqueness is the caller's concern;
// collisions are handled by probe-and-retry against the unique column.
func GenerateCode(prefix string, length int) string {
	buff := make([]byte, length)
	_, _ = rand.Read(buff)

	for i := range buff {
		buff[i] = codeCharset[int(buff[i])%len(codeCharset)]
	}

	return fmt.Sprintf("%s-%s", prefix, string(buff))
}
