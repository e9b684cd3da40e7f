// Package fees holds the money math for the escrow engine. All amounts are
// whole rupiah carried as int64; intermediate products use decimals and are
// rounded half away from zero, matching how the platform has always billed.
package fees

import "github.com/shopspring/decimal"

const hundred = 100

// Calculator derives platform fees and milestone splits from a configured
// fee percentage.
type Calculator struct {
	feePercent int64
}

// NewCalculator builds a Calculator for the given platform fee percentage.
func NewCalculator(feePercent int64) Calculator {
	return Calculator{feePercent: feePercent}
}

// FeePercent returns the configured platform fee percentage.
func (c Calculator) FeePercent() int64 {
	return c.feePercent
}

// PlatformFee returns the platform's cut of amount.
func (c Calculator) PlatformFee(amount int64) int64 {
	fee := decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(c.feePercent)).
		Div(decimal.NewFromInt(hundred))
	return fee.Round(0).IntPart()
}

// NetAmount returns what the vibecoder keeps after the platform fee.
func (c Calculator) NetAmount(amount int64) int64 {
	return amount - c.PlatformFee(amount)
}

// MilestoneAmount splits the project total by a milestone's percentage.
func MilestoneAmount(total int64, percentage int64) int64 {
	share := decimal.NewFromInt(total).
		Mul(decimal.NewFromInt(percentage)).
		Div(decimal.NewFromInt(hundred))
	return share.Round(0).IntPart()
}

// SplitShare prorates netTotal for a split dispute resolution: the client is
// refunded refundPercent of the gross, the vibecoder is credited the
// complement of the net.
func SplitShare(netTotal int64, refundPercent int64) int64 {
	share := decimal.NewFromInt(netTotal).
		Mul(decimal.NewFromInt(hundred - refundPercent)).
		Div(decimal.NewFromInt(hundred))
	return share.Round(0).IntPart()
}

// RefundShare prorates the gross total for the client side of a split
// resolution.
func RefundShare(total int64, refundPercent int64) int64 {
	share := decimal.NewFromInt(total).
		Mul(decimal.NewFromInt(refundPercent)).
		Div(decimal.NewFromInt(hundred))
	return share.Round(0).IntPart()
}
