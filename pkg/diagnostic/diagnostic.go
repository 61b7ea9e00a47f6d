// Package diagnostic interprets the metrics of a QUIC trace into
// human/agent-readable ratings, a letter grade and a list of concerns.
package diagnostic

import (
	"fmt"
	"strings"
)

// Interpretation holds the semantic interpretation of one trace's metrics.
type Interpretation struct {
	Grade           string   `json:"grade"`
	Summary         string   `json:"summary"`
	LatencyRating   string   `json:"latency_rating"`
	StabilityRating string   `json:"stability_rating"`
	LossRating      string   `json:"loss_rating"`
	Concerns        []string `json:"concerns"`
}

// Params are the raw metrics to interpret.
type Params struct {
	SmoothedRTTMeanMs float64
	RTTStdDevMs       float64
	RTTP99Ms          float64
	RTTSamples        int
	LossPercent       float64
	PacketsSent       uint64
}

// Interpret produces a diagnostic Interpretation from raw metrics.
func Interpret(p Params) *Interpretation {
	interp := &Interpretation{
		Concerns: []string{},
	}

	interp.LatencyRating = rateLatency(p)
	interp.StabilityRating = rateStability(p)
	interp.LossRating = rateLoss(p)
	interp.Concerns = concerns(p)

	interp.Grade = computeGrade(interp.LatencyRating, interp.StabilityRating, interp.LossRating)
	interp.Summary = buildSummary(interp.Grade, p)

	return interp
}

func rateLatency(p Params) string {
	if p.RTTSamples == 0 {
		return "unknown"
	}
	switch ms := p.SmoothedRTTMeanMs; {
	case ms <= 20:
		return "excellent"
	case ms <= 50:
		return "good"
	case ms <= 100:
		return "fair"
	default:
		return "poor"
	}
}

// rateStability looks at how much smoothed RTT moves over the trace. One
// sample says nothing about variation.
func rateStability(p Params) string {
	if p.RTTSamples < 2 {
		return "unknown"
	}
	switch sd := p.RTTStdDevMs; {
	case sd <= 5:
		return "stable"
	case sd <= 15:
		return "fair"
	case sd <= 30:
		return "degraded"
	default:
		return "unstable"
	}
}

func rateLoss(p Params) string {
	if p.PacketsSent == 0 {
		return "unknown"
	}
	switch loss := p.LossPercent; {
	case loss <= 0.1:
		return "excellent"
	case loss <= 1:
		return "good"
	case loss <= 2:
		return "fair"
	case loss <= 5:
		return "degraded"
	default:
		return "poor"
	}
}

func concerns(p Params) []string {
	c := []string{}

	if p.RTTSamples == 0 {
		c = append(c, "no_rtt_samples")
	}
	if p.RTTSamples > 0 && p.SmoothedRTTMeanMs > 100 {
		c = append(c, "high_rtt")
	}
	if p.RTTSamples > 1 && p.RTTStdDevMs > 30 {
		c = append(c, "high_rtt_variation")
	}
	// p99 well above the mean points at queueing spikes rather than a long path.
	if p.RTTSamples > 1 && p.RTTP99Ms > 2*p.SmoothedRTTMeanMs && p.RTTP99Ms-p.SmoothedRTTMeanMs > 10 {
		c = append(c, "rtt_spikes")
	}
	if p.PacketsSent == 0 {
		c = append(c, "no_packets_sent")
	}
	if p.PacketsSent > 0 && p.LossPercent > 1 {
		c = append(c, "packet_loss")
	}

	return c
}

var ratingScore = map[string]int{
	"excellent": 4,
	"stable":    4,
	"good":      3,
	"fair":      2,
	"degraded":  1,
	"poor":      0,
	"unstable":  0,
	"unknown":   2, // neutral default
}

func computeGrade(latency, stability, loss string) string {
	score := ratingScore[latency] + ratingScore[stability] + ratingScore[loss]
	// Max score = 12 (4+4+4)
	switch {
	case score >= 11:
		return "A"
	case score >= 9:
		return "B"
	case score >= 6:
		return "C"
	case score >= 3:
		return "D"
	default:
		return "F"
	}
}

var gradeDesc = map[string]string{
	"A": "Excellent",
	"B": "Good",
	"C": "Fair",
	"D": "Poor",
	"F": "Very poor",
}

func buildSummary(grade string, p Params) string {
	parts := []string{}
	if p.RTTSamples > 0 {
		parts = append(parts, fmt.Sprintf("%.1fms smoothed RTT", p.SmoothedRTTMeanMs))
	}
	if p.RTTSamples > 1 {
		parts = append(parts, fmt.Sprintf("%.1fms RTT stddev", p.RTTStdDevMs))
	}
	if p.PacketsSent > 0 {
		parts = append(parts, fmt.Sprintf("%.2f%% loss", p.LossPercent))
	}

	summary := gradeDesc[grade] + " connection"
	if len(parts) > 0 {
		summary += ": " + strings.Join(parts, ", ")
	}
	return summary
}
