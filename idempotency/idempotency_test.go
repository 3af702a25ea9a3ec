package idempotency

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var giftRefPattern = regexp.MustCompile(`^GIFT-\d+-[0-9A-F]{12}$`)

func TestNewTransactionReferenceFormat(t *testing.T) {
	ref := NewTransactionReference("GIFT", time.Now())
	assert.Regexp(t, giftRefPattern, ref)
}

func TestNewTransactionReferenceIsUnique(t *testing.T) {
	now := time.Now()
	a := NewTransactionReference("GIFT", now)
	b := NewTransactionReference("GIFT", now)
	assert.NotEqual(t, a, b)
}
