package notebook

import (
	"testing"
)

// MustParse parses an in-memory document and fails the test on error.
func MustParse(t *testing.T, content []byte) *Notebook {
	t.Helper()
	n, err := ParseBytes(content)
	if err != nil {
		t.Fatal(err)
	}
	return n
}
