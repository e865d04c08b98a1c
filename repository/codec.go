package repository

import (
	"fmt"
	"math"

	"raffler/models"
)

// Addresses are stored as base58 text, amounts as BIGINT.

func bigint(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("value %d does not fit a BIGINT column", v)
	}
	return int64(v), nil
}

func unsigned(v int64) uint64 {
	return uint64(v)
}

func parseAddress(s string) (models.Address, error) {
	addr, err := models.ParseAddress(s)
	if err != nil {
		return models.Address{}, fmt.Errorf("corrupt address column %q: %w", s, err)
	}
	return addr, nil
}

func parseOptionalAddress(s *string) (*models.Address, error) {
	if s == nil {
		return nil, nil
	}
	addr, err := parseAddress(*s)
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

func optionalAddress(a *models.Address) *string {
	if a == nil {
		return nil
	}
	s := a.String()
	return &s
}

// addressParser collects the first parse error of a row
type addressParser struct {
	err error
}

func (p *addressParser) parse(s string) models.Address {
	if p.err != nil {
		return models.Address{}
	}
	addr, err := parseAddress(s)
	if err != nil {
		p.err = err
	}
	return addr
}

func (p *addressParser) parseOptional(s *string) *models.Address {
	if p.err != nil {
		return nil
	}
	addr, err := parseOptionalAddress(s)
	if err != nil {
		p.err = err
	}
	return addr
}
