// Package commission computes affiliate commission for signed
// contracts.
package commission

import (
	"math"

	"github.com/affilink/affiliate-backend/internal/common/config"
	"github.com/affilink/affiliate-backend/internal/models"
)

// Service computes commission amounts. All values are whole VND.
//
// Partner and KOL/VIP affiliates earn a percentage of the contract
// value. SME affiliates earn a flat amount inside the configured
// contract value band and fall back to the percentage outside it.
type Service struct {
	percentRate float64
	smeFlat     int64
	smeBandMin  int64
	smeBandMax  int64
}

// NewService creates a commission service from the business config.
func NewService(cfg *config.CommissionConfig) *Service {
	return &Service{
		percentRate: cfg.PercentRate,
		smeFlat:     cfg.SmeFlat,
		smeBandMin:  cfg.SmeBandMin,
		smeBandMax:  cfg.SmeBandMax,
	}
}

// Calculate returns the commission for a signed contract.
func (s *Service) Calculate(affiliateType string, contractValue int64) int64 {
	if contractValue <= 0 {
		return 0
	}

	switch affiliateType {
	case models.AffiliateTypeSme:
		if contractValue >= s.smeBandMin && contractValue <= s.smeBandMax {
			return s.smeFlat
		}
		return s.percentOf(contractValue)
	default:
		// partner and kol_vip settle at the percentage rate
		return s.percentOf(contractValue)
	}
}

// Delta returns the ledger adjustment needed when a signed contract's
// value is corrected: the new commission minus the previously credited
// one.
func (s *Service) Delta(affiliateType string, oldContractValue, newContractValue, creditedCommission int64) (newCommission, delta int64) {
	newCommission = s.Calculate(affiliateType, newContractValue)
	return newCommission, newCommission - creditedCommission
}

func (s *Service) percentOf(contractValue int64) int64 {
	return int64(math.Round(float64(contractValue) * s.percentRate))
}
