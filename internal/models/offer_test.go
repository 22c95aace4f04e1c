package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDiscount(t *testing.T) {
	t.Run("Premium Tier", func(t *testing.T) {
		offer := &Offer{BasePrice: 10000}
		offer.ApplyDiscount(TierPremium.DiscountPercentage())

		assert.Equal(t, float64(10), offer.DiscountPct)
		assert.Equal(t, float64(1000), offer.DiscountAmt)
		assert.Equal(t, float64(9000), offer.FinalPrice)
	})

	t.Run("Standard Tier", func(t *testing.T) {
		offer := &Offer{BasePrice: 20000}
		offer.ApplyDiscount(TierStandard.DiscountPercentage())

		assert.Equal(t, float64(5), offer.DiscountPct)
		assert.Equal(t, float64(1000), offer.DiscountAmt)
		assert.Equal(t, float64(19000), offer.FinalPrice)
	})

	t.Run("No Tier", func(t *testing.T) {
		offer := &Offer{BasePrice: 15000}
		offer.ApplyDiscount(TierNone.DiscountPercentage())

		assert.Equal(t, float64(0), offer.DiscountPct)
		assert.Equal(t, float64(15000), offer.FinalPrice)
	})
}

func TestSubmitOfferInputValidate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		input := &SubmitOfferInput{Aircraft: "Gulfstream G650", BasePrice: 20000}
		assert.NoError(t, input.Validate())
	})

	t.Run("Missing Aircraft", func(t *testing.T) {
		input := &SubmitOfferInput{BasePrice: 20000}
		assert.Error(t, input.Validate())
	})

	t.Run("Non-Positive Price", func(t *testing.T) {
		input := &SubmitOfferInput{Aircraft: "Citation XLS", BasePrice: 0}
		assert.Error(t, input.Validate())
	})
}

func TestOfferIsExpired(t *testing.T) {
	now := time.Now()
	offer := &Offer{OfferDate: now, ExpiresAt: now.Add(OfferValidity)}

	assert.False(t, offer.IsExpired(now))
	assert.False(t, offer.IsExpired(now.Add(OfferValidity)))
	assert.True(t, offer.IsExpired(now.Add(OfferValidity+time.Minute)))
}
