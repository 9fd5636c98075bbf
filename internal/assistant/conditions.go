package assistant

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chargeopt/chargeopt/internal/tariff"
)

// liveConditions are the values the front end echoes back from
// /api/current-conditions under context.current_conditions.
type liveConditions struct {
	temperatureF float64
	hasTemp      bool
	solarKW      float64
	hasSolar     bool
	rates        map[tariff.Utility]float64
}

// parseConditions reads weather.temperature, solar.power_kw and
// pricing.<utility>.rate. Missing or malformed values are ignored, and zero
// temperature or solar output counts as absent.
func parseConditions(clientContext map[string]any) liveConditions {
	var lc liveConditions
	cc := object(clientContext["current_conditions"])
	if cc == nil {
		return lc
	}

	if v, ok := number(object(cc["weather"])["temperature"]); ok && v != 0 {
		lc.temperatureF, lc.hasTemp = v, true
	}
	if v, ok := number(object(cc["solar"])["power_kw"]); ok && v != 0 {
		lc.solarKW, lc.hasSolar = v, true
	}
	for key, raw := range object(cc["pricing"]) {
		u, err := tariff.ParseUtility(key)
		if err != nil {
			continue
		}
		if v, ok := number(object(raw)["rate"]); ok && v > 0 {
			if lc.rates == nil {
				lc.rates = make(map[tariff.Utility]float64, 2)
			}
			lc.rates[u] = v
		}
	}
	return lc
}

// rate returns the live rate for u, or fallback when none was sent.
func (lc liveConditions) rate(u tariff.Utility, fallback float64) float64 {
	if v, ok := lc.rates[u]; ok {
		return v
	}
	return fallback
}

// summary renders the live weather and solar values, or "" when absent.
func (lc liveConditions) summary() string {
	var parts []string
	if lc.hasTemp {
		parts = append(parts, fmt.Sprintf("Currently %.0f°F.", lc.temperatureF))
	}
	if lc.hasSolar {
		parts = append(parts, fmt.Sprintf("Solar: %.1f kW.", lc.solarKW))
	}
	return strings.Join(parts, " ")
}

func object(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
