package token

import "github.com/holiman/uint256"

var ten = uint256.NewInt(10)

// Unit returns 10^decimals, the number of smallest units in one whole token.
func Unit(decimals uint8) (*uint256.Int, error) {
	unit := uint256.NewInt(1)
	for i := uint8(0); i < decimals; i++ {
		if _, overflow := unit.MulOverflow(unit, ten); overflow {
			return nil, ErrOverflow
		}
	}
	return unit, nil
}

// Scale converts a whole-token amount into smallest units.
func Scale(whole *uint256.Int, decimals uint8) (*uint256.Int, error) {
	unit, err := Unit(decimals)
	if err != nil {
		return nil, err
	}
	scaled, overflow := new(uint256.Int).MulOverflow(whole, unit)
	if overflow {
		return nil, ErrOverflow
	}
	return scaled, nil
}
