// Package commission commission calculation unit tests
package commission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/affilink/affiliate-backend/internal/common/config"
	"github.com/affilink/affiliate-backend/internal/models"
)

func newTestService() *Service {
	return NewService(&config.CommissionConfig{
		PercentRate: 0.03,
		SmeFlat:     500_000,
		SmeBandMin:  1_000_000,
		SmeBandMax:  29_990_000,
	})
}

func TestService_Calculate_Partner(t *testing.T) {
	s := newTestService()

	assert.Equal(t, int64(300_000), s.Calculate(models.AffiliateTypePartner, 10_000_000))
	assert.Equal(t, int64(30_000), s.Calculate(models.AffiliateTypePartner, 1_000_000))
	assert.Equal(t, int64(0), s.Calculate(models.AffiliateTypePartner, 0))
	assert.Equal(t, int64(0), s.Calculate(models.AffiliateTypePartner, -5))
}

func TestService_Calculate_KolVip(t *testing.T) {
	s := newTestService()

	// KOL/VIP settles at the percentage rate like partners
	assert.Equal(t, int64(900_000), s.Calculate(models.AffiliateTypeKolVip, 30_000_000))
}

func TestService_Calculate_SmeInsideBand(t *testing.T) {
	s := newTestService()

	assert.Equal(t, int64(500_000), s.Calculate(models.AffiliateTypeSme, 1_000_000))
	assert.Equal(t, int64(500_000), s.Calculate(models.AffiliateTypeSme, 15_000_000))
	assert.Equal(t, int64(500_000), s.Calculate(models.AffiliateTypeSme, 29_990_000))
}

func TestService_Calculate_SmeOutsideBand(t *testing.T) {
	s := newTestService()

	// below the band the flat amount would exceed the contract itself
	assert.Equal(t, int64(15_000), s.Calculate(models.AffiliateTypeSme, 500_000))
	// above the band the percentage beats the flat amount
	assert.Equal(t, int64(900_000), s.Calculate(models.AffiliateTypeSme, 30_000_000))
}

func TestService_Calculate_Rounding(t *testing.T) {
	s := newTestService()

	// 3% of 1,000,001 is 30,000.03, rounds down
	assert.Equal(t, int64(30_000), s.Calculate(models.AffiliateTypePartner, 1_000_001))
	// 3% of 1,000,050 is 30,001.5, rounds up
	assert.Equal(t, int64(30_002), s.Calculate(models.AffiliateTypePartner, 1_000_050))
}

func TestService_Delta(t *testing.T) {
	s := newTestService()

	newCommission, delta := s.Delta(models.AffiliateTypePartner, 10_000_000, 15_000_000, 300_000)
	assert.Equal(t, int64(450_000), newCommission)
	assert.Equal(t, int64(150_000), delta)

	// correction downward yields a negative delta
	newCommission, delta = s.Delta(models.AffiliateTypePartner, 10_000_000, 5_000_000, 300_000)
	assert.Equal(t, int64(150_000), newCommission)
	assert.Equal(t, int64(-150_000), delta)

	// SME crossing out of the band switches rule
	newCommission, delta = s.Delta(models.AffiliateTypeSme, 15_000_000, 30_000_000, 500_000)
	assert.Equal(t, int64(900_000), newCommission)
	assert.Equal(t, int64(400_000), delta)
}
