// Package operator holds the interactive plumbing behind tokenctl: prompts,
// input validation, network resolution and the deployment log.
package operator

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/custom-token-ledger/internal/config"
	"github.com/sheikh-saqib/custom-token-ledger/internal/token"
)

// Validator rejects an unusable answer with a message fit for the user.
type Validator func(string) error

var privateKeyPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{64}$`)

func ValidatePrivateKey(s string) error {
	if !privateKeyPattern.MatchString(s) {
		return errors.New("invalid private key format")
	}
	return nil
}

func ValidateRequired(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("this field is required and cannot be empty")
	}
	return nil
}

func ValidateNetwork(s string) error {
	if _, ok := config.Networks[strings.ToLower(strings.TrimSpace(s))]; !ok {
		return errors.Errorf("invalid network selection, choose from %s", strings.Join(NetworkNames(), ", "))
	}
	return nil
}

func ValidateTaxPercentage(s string) error {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 8)
	if err != nil || v > uint64(token.MaxTaxPercentage) {
		return errors.Errorf("tax percentage must be a whole number between 0 and %d", token.MaxTaxPercentage)
	}
	return nil
}

func ValidateInitialSupply(s string) error {
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !v.IsPositive() || !v.IsInteger() {
		return errors.New("initial supply must be a positive whole number")
	}
	return nil
}

// ValidateWholeAmount accepts a non-negative whole number of tokens.
func ValidateWholeAmount(s string) error {
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || v.IsNegative() || !v.IsInteger() {
		return errors.New("amount must be a non-negative whole number")
	}
	return nil
}

// ValidateAmount accepts a non-negative token amount, fractions allowed.
func ValidateAmount(s string) error {
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || v.IsNegative() {
		return errors.New("amount must be a non-negative number")
	}
	return nil
}

func ValidateDecimals(s string) error {
	if _, err := strconv.ParseUint(strings.TrimSpace(s), 10, 8); err != nil {
		return errors.New("decimals must be a number between 0 and 255")
	}
	return nil
}

func ValidateAddress(s string) error {
	if !common.IsHexAddress(strings.TrimSpace(s)) {
		return errors.New("invalid address")
	}
	return nil
}
