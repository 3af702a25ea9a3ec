package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRedistribution(t *testing.T) {
	assert.True(t, IsRedistribution(KindRedistributionCredit))
	assert.True(t, IsRedistribution(KindRedistributionDebit))
	assert.False(t, IsRedistribution(KindBoomPurchaseReal))
	assert.False(t, IsRedistribution(KindDepositReal))
}

func TestCreditKindClassification(t *testing.T) {
	for kind := range creditKindsReal {
		assert.False(t, IsRedistribution(kind), "credit kind %s must not be redistribution-class", kind)
	}
	for kind := range debitKindsReal {
		assert.False(t, IsRedistribution(kind), "debit kind %s must not be redistribution-class", kind)
	}
}
