package anomaly

import (
	"fmt"
	"strings"

	"github.com/saviobatista/skywatch/internal/types"
)

// GenerateSummary produces a deterministic natural-language rollup of one
// detection pass over a region.
func GenerateSummary(flights []types.FlightRecord, anomalies []Anomaly, region string) string {
	if len(flights) == 0 {
		return fmt.Sprintf("Region %s currently has no active flights.", region)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Region %s currently has %d active flights.", region, len(flights))

	if len(anomalies) == 0 {
		b.WriteString(" All flights appear normal with no anomalies detected.")
		return b.String()
	}

	fmt.Fprintf(&b, " %d flight(s) are flagged as anomalous.", len(anomalies))

	var critical, medium []Anomaly
	for _, a := range anomalies {
		switch a.Severity {
		case types.SeverityHigh:
			critical = append(critical, a)
		case types.SeverityMedium:
			medium = append(medium, a)
		}
	}

	if len(critical) > 0 {
		fmt.Fprintf(&b, "\n\nCRITICAL ALERTS (%d):", len(critical))
		for _, a := range critical[:min(3, len(critical))] {
			fmt.Fprintf(&b, "\n  - %s: %s", a.Flight.Label(), a.Description)
		}
	}

	if len(medium) > 0 {
		fmt.Fprintf(&b, "\n\nMedium Priority (%d):", len(medium))
		for _, a := range medium[:min(2, len(medium))] {
			fmt.Fprintf(&b, "\n  - %s: %s", a.Flight.Label(), a.Description)
		}
	}

	if len(critical) > 0 {
		worst := critical[0]
		fmt.Fprintf(&b, "\n\nMOST CRITICAL: %s requires immediate attention. Last position: %s, %s",
			worst.Flight.Label(), coordinate(worst.Flight.Latitude), coordinate(worst.Flight.Longitude))
	}

	return b.String()
}

func coordinate(v *float64) string {
	if v == nil {
		return "unknown"
	}
	return fmt.Sprintf("%g", *v)
}
