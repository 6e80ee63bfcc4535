package perftest

import (
	"fmt"
	"strconv"
	"strings"
)

// Gradual-ramp keywords. When the description signals a slow ramp but no
// explicit ramp duration, the ramp is derived from the hold duration.
var gradualKeywords = []string{"缓慢", "逐步", "渐进"}

// DeriveRampUp resolves the ramp-up duration for a run. An explicitly
// extracted value wins; otherwise a gradual-ramp keyword in the description
// yields max(5s, 10% of the hold duration); otherwise the ramp is an
// immediate 1s step.
func DeriveRampUp(description string, extracted Parameters, holdDuration string) string {
	if extracted.RampUpDuration != "" {
		return extracted.RampUpDuration
	}

	gradual := false
	for _, kw := range gradualKeywords {
		if strings.Contains(description, kw) {
			gradual = true
			break
		}
	}
	if !gradual {
		return "1s"
	}

	switch {
	case strings.HasSuffix(holdDuration, "s"):
		secs, err := strconv.Atoi(strings.TrimSuffix(holdDuration, "s"))
		if err != nil {
			return "5s"
		}
		return fmt.Sprintf("%ds", max(5, secs/10))
	case strings.HasSuffix(holdDuration, "m"):
		mins, err := strconv.Atoi(strings.TrimSuffix(holdDuration, "m"))
		if err != nil {
			return "5s"
		}
		return fmt.Sprintf("%ds", max(5, mins*6))
	default:
		return "5s"
	}
}

// BuildStages derives the load curve for a run. When an intermediate ramp
// target differs from the final concurrency the hold stage continues the
// ramp from the intermediate target up to the final value; otherwise the
// standard ramp/hold/ramp-down shape is produced.
func BuildStages(finalVUs int, holdDuration, rampUp, rampDown string, rampUpTarget int) []Stage {
	if rampUpTarget != 0 && rampUpTarget != finalVUs {
		return []Stage{
			{Duration: rampUp, Target: rampUpTarget},
			{Duration: holdDuration, Target: finalVUs},
			{Duration: rampDown, Target: 0},
		}
	}
	return []Stage{
		{Duration: rampUp, Target: finalVUs},
		{Duration: holdDuration, Target: finalVUs},
		{Duration: rampDown, Target: 0},
	}
}
