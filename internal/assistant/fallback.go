package assistant

import (
	"fmt"
	"strings"
	"time"

	"github.com/chargeopt/chargeopt/internal/tariff"
)

var intentKeywords = []struct {
	intent Intent
	words  []string
}{
	{IntentBestTime, []string{"best time", "when to charge", "when should i charge", "time to charge", "charge today", "charge now", "tonight"}},
	{IntentRates, []string{"ladwp", "sce", "edison", "water and power", "cost", "rate", "price", "compare", "cheap"}},
	{IntentSolar, []string{"solar", "sun", "renewable"}},
	{IntentStations, []string{"station", "charger", "location", "find", "near"}},
}

// DetectIntent picks the first topic whose keywords appear in message.
func DetectIntent(message string) Intent {
	m := strings.ToLower(message)
	for _, k := range intentKeywords {
		for _, w := range k.words {
			if strings.Contains(m, w) {
				return k.intent
			}
		}
	}
	return IntentGeneral
}

var utilityNames = map[tariff.Utility]string{
	tariff.UtilityLADWP: "LA Department of Water and Power",
	tariff.UtilitySCE:   "Southern California Edison",
}

func periodName(p tariff.Period) string {
	return strings.ReplaceAll(string(p), "_", " ")
}

// window is a run of consecutive hours in the same period.
type window struct {
	start, end int // end exclusive
	quote      tariff.Quote
}

func windows(table [24]tariff.Quote) []window {
	var out []window
	for h := 0; h < 24; h++ {
		if n := len(out); n > 0 && out[n-1].quote == table[h] {
			out[n-1].end = h + 1
			continue
		}
		out = append(out, window{start: h, end: h + 1, quote: table[h]})
	}
	// Merge a period that wraps past midnight.
	if n := len(out); n > 1 && out[0].quote == out[n-1].quote {
		out[0].start = out[n-1].start
		out = out[:n-1]
	}
	return out
}

func clock(hour int) string {
	return time.Date(2000, 1, 1, hour%24, 0, 0, 0, time.UTC).Format("3 PM")
}

// cheapestAhead finds the first hour in the next 24 whose rate is the
// minimum over that span.
func cheapestAhead(s *tariff.Schedule, now time.Time, u tariff.Utility) (time.Time, tariff.Quote) {
	base := now.Truncate(time.Hour)
	bestAt, best := base, s.QuoteAt(base, u)
	for i := 1; i < 24; i++ {
		t := base.Add(time.Duration(i) * time.Hour)
		if q := s.QuoteAt(t, u); q.Rate < best.Rate {
			bestAt, best = t, q
		}
	}
	return bestAt, best
}

func (s *Service) fallbackText(intent Intent, now time.Time, live liveConditions) string {
	var b strings.Builder
	switch intent {
	case IntentBestTime:
		dayKind := "weekday"
		if tariff.IsWeekend(now) {
			dayKind = "weekend"
		}
		fmt.Fprintf(&b, "It is %s on a %s.", now.Format("3:04 PM"), dayKind)
		if line := live.summary(); line != "" {
			b.WriteString(" " + line)
		}
		b.WriteString("\n")
		for _, u := range tariff.Utilities() {
			cur := s.schedule.QuoteAt(now, u)
			cur.Rate = live.rate(u, cur.Rate)
			at, best := cheapestAhead(s.schedule, now, u)
			fmt.Fprintf(&b, "%s: $%.3f/kWh now (%s). ", utilityNames[u], cur.Rate, periodName(cur.Period))
			if best.Rate >= cur.Rate {
				b.WriteString("Charge now, this is the lowest rate for the next 24 hours.\n")
			} else {
				fmt.Fprintf(&b, "Wait until %s for $%.3f/kWh (%s).\n", at.Format("3 PM"), best.Rate, periodName(best.Period))
			}
		}
		b.WriteString("Use the session optimizer for an hour-by-hour plan that also accounts for solar.")

	case IntentRates:
		for _, u := range tariff.Utilities() {
			fmt.Fprintf(&b, "%s weekday rates:\n", utilityNames[u])
			for _, w := range windows(s.schedule.Table(u, false)) {
				fmt.Fprintf(&b, "- %s to %s: $%.3f/kWh (%s)\n", clock(w.start), clock(w.end), w.quote.Rate, periodName(w.quote.Period))
			}
			weekend := s.schedule.Quote(12, true, u)
			fmt.Fprintf(&b, "Weekends are $%.3f/kWh all day.\n", weekend.Rate)
		}

	case IntentSolar:
		if line := live.summary(); line != "" {
			b.WriteString(line + " ")
		}
		b.WriteString("Solar output in Los Angeles peaks between 10 AM and 2 PM and is highest from May to August. ")
		b.WriteString("Charging midday on a weekend combines solar offset with the lowest tariff. ")
		b.WriteString("Check current conditions for the live solar estimate.")

	case IntentStations:
		if n := s.stationCount(); n > 0 {
			fmt.Fprintf(&b, "%d charging stations are loaded. ", n)
		}
		b.WriteString("Search the station map by location to see the nearest chargers, their port counts and whether they offer DC fast charging.")

	default:
		b.WriteString("I can help you pick the cheapest time to charge, compare LADWP and SCE rates, ")
		b.WriteString("explain how solar affects charging, and find stations near you. ")
		b.WriteString("Try asking \"When should I charge today?\"")
	}
	return strings.TrimSpace(b.String())
}
