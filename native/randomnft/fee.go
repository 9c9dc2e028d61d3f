package randomnft

import "math/big"

// AdmitFee checks a payment against the mint fee. Overpayment is accepted and
// kept in full.
func AdmitFee(paid, fee *big.Int) error {
	if paid == nil || paid.Sign() < 0 {
		return ErrInsufficientFee
	}
	if fee != nil && paid.Cmp(fee) < 0 {
		return ErrInsufficientFee
	}
	return nil
}
