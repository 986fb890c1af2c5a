// Package network models a graph of polders (peilgebieden) joined by
// pumps, weirs, check valves, and open links, and simulates their
// coupled water balance one discrete step at a time.
package network

import "github.com/rijnland-waterbeheer/peilbeheer/internal/domain"

// PolderConfig describes one polder's static physical properties.
type PolderConfig struct {
	ID               string
	AreaM2           float64
	TargetLevelM     float64
	MarginM          float64
	GroundLevelM     float64
	MaxDischargeM3s  float64
	EvaporationMMh   float64
	InfiltrationMMh  float64
}

// MinLevel and MaxLevel form the regulatory band around TargetLevelM.
func (p PolderConfig) MinLevel() float64 { return p.TargetLevelM - p.MarginM }
func (p PolderConfig) MaxLevel() float64 { return p.TargetLevelM + p.MarginM }

// InBand reports whether level lies within [MinLevel, MaxLevel].
func (p PolderConfig) InBand(level float64) bool {
	return level >= p.MinLevel() && level <= p.MaxLevel()
}

// Validate checks the polder's own invariants, independent of topology.
func (p PolderConfig) Validate() error {
	if p.ID == "" {
		return domain.Invalidf("polder id must not be empty")
	}
	if p.AreaM2 <= 0 {
		return domain.Invalidf("polder %s: area must be > 0, got %v", p.ID, p.AreaM2)
	}
	return nil
}
