package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	code := GenerateCode("BK", 10)

	require.True(t, strings.HasPrefix(code, "BK-"))
	body := strings.TrimPrefix(code, "BK-")
	assert.Len(t, body, 10)

	for _, r := range body {
		assert.Containsf(t, codeCharset, string(r), "unexpected character %q in %s", r, code)
	}
}

func TestGenerateCodeAvoidsAmbiguousCharacters(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := GenerateCode("TKT", 12)
		for _, forbidden := range []string{"0", "O", "1", "I", "L"} {
			assert.NotContains(t, strings.TrimPrefix(code, "TKT-"), forbidden)
		}
	}
}

func TestGenerateTimestampWithPrefix(t *testing.T) {
	ref := GenerateTimestampWithPrefix("GL")
	assert.True(t, strings.HasPrefix(ref, "GL-"))
}
