package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrInvalidAddress     = errors.New("invalid ledger address")
	ErrInvalidDisplayName = errors.New("invalid display name")
	ErrInvalidRequestID   = errors.New("invalid request id")
)

var (
	// Classic addresses use the ledger's base58 alphabet, which omits 0, O, I and l.
	addressRegex     = regexp.MustCompile(`^r[1-9A-HJ-NP-Za-km-z]{24,34}$`)
	displayNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,30}$`)
	requestIDRegex   = regexp.MustCompile(`^[a-zA-Z0-9_.:-]{1,64}$`)
)

func ValidateAddress(address string) error {
	if !addressRegex.MatchString(address) {
		return ErrInvalidAddress
	}
	return nil
}

func ValidateDisplayName(name string) error {
	if !displayNameRegex.MatchString(name) {
		return ErrInvalidDisplayName
	}
	return nil
}

func ValidateRequestID(requestID string) error {
	if !requestIDRegex.MatchString(strings.TrimSpace(requestID)) {
		return ErrInvalidRequestID
	}
	return nil
}
