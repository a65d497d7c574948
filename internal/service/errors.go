package service

import "errors"

var (
	ErrUnknownSymbol        = errors.New("unknown symbol")
	ErrOracleUnavailable    = errors.New("price oracle unavailable")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrMalformedQuantity    = errors.New("malformed quantity")
	ErrInvalidTrade         = errors.New("invalid trade")
	ErrEmptyPortfolio       = errors.New("portfolio is empty")
	ErrEmptyUser            = errors.New("empty user id")
	ErrUsage                = errors.New("usage error")
	ErrStatementTooLarge    = errors.New("statement exceeds file limit")
)
