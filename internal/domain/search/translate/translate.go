// Package translate maps sequential-search criteria onto backend queries.
// Builders are pure: the same input always yields the same query.
package translate

import (
	"time"
)

// Limits bounds the generated queries.
type Limits struct {
	CompanyLimit    int
	CompanyTotalCap int
	CompanyTimeout  time.Duration
	ProfileTotalCap int
	ProfileTimeout  time.Duration
}

// DefaultLimits returns the production defaults.
func DefaultLimits() Limits {
	return Limits{
		CompanyLimit:    1000,
		CompanyTotalCap: 10000,
		CompanyTimeout:  10 * time.Second,
		ProfileTotalCap: 10000,
		ProfileTimeout:  15 * time.Second,
	}
}

// Translator builds company and people queries.
type Translator struct {
	limits Limits
}

// New creates a Translator. Zero limits fall back to defaults.
func New(limits Limits) *Translator {
	def := DefaultLimits()
	if limits.CompanyLimit <= 0 {
		limits.CompanyLimit = def.CompanyLimit
	}
	if limits.CompanyTotalCap <= 0 {
		limits.CompanyTotalCap = def.CompanyTotalCap
	}
	if limits.CompanyTimeout <= 0 {
		limits.CompanyTimeout = def.CompanyTimeout
	}
	if limits.ProfileTotalCap <= 0 {
		limits.ProfileTotalCap = def.ProfileTotalCap
	}
	if limits.ProfileTimeout <= 0 {
		limits.ProfileTimeout = def.ProfileTimeout
	}
	return &Translator{limits: limits}
}

// Limits returns the effective limits.
func (t *Translator) Limits() Limits { return t.limits }
