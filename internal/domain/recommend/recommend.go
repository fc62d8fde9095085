// Package recommend turns a scored assessment into short, static guidance.
// Output is fully determined by its inputs.
package recommend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/okian/readiness/internal/domain/gate"
	"github.com/okian/readiness/internal/domain/model"
)

// WeakPillarScore is the score below which a pillar gets a message.
const WeakPillarScore = 60.0

// focusCount is how many of the lowest pillars are considered.
const focusCount = 2

// Kind groups recommendations.
type Kind string

const (
	KindTier   Kind = "tier"
	KindPillar Kind = "pillar"
	KindGate   Kind = "gate"
)

// Recommendation is one line of guidance. Subject is the risk category,
// pillar or gate the message is about.
type Recommendation struct {
	Kind    Kind   `json:"kind"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

var tierAdvice = map[model.RiskCategory]string{
	model.Critical: "prioritize recovery and strength before adding intensity.",
	model.High:     "build aerobic volume at easy effort and address weak pillars.",
	model.Medium:   "threshold work is open; keep two easy days between quality sessions.",
	model.Low:      "ready for structured intensity once the power gate is cleared.",
	model.VeryLow:  "full intensity range available when both safety gates pass.",
}

var pillarMessages = map[model.Pillar]string{
	model.Running:   "Build weekly volume gradually, no more than 10% per week, and keep most runs conversational.",
	model.Strength:  "Add two strength sessions per week focused on squats, lunges and core endurance.",
	model.ROM:       "Work on joint range daily: ankle dorsiflexion and hip flexion drills after runs.",
	model.Balance:   "Practice single-leg stance and hops on the weaker leg to even out stability.",
	model.Alignment: "Have posture findings reviewed; corrective exercise can reduce load on knees and back.",
	model.Mobility:  "Include a short mobility routine before runs: ankle rocks, hamstring sweeps and deep squat holds.",
}

var gateNames = map[gate.Name]string{
	gate.Power: "Power",
	gate.Speed: "Speed",
}

// Generate emits, in order, the tier message for the category, a message for
// each of the two lowest pillars that scores below WeakPillarScore, and one
// message per locked gate listing its unmet criteria. lowerBound supplies the
// category breakpoints quoted in the tier message, normally a classifier's
// LowerBound.
func Generate(lowerBound func(model.RiskCategory) float64, cat model.RiskCategory, scores model.PillarScores, gates ...gate.Result) []Recommendation {
	out := make([]Recommendation, 0, 1+focusCount+len(gates))

	if _, ok := tierAdvice[cat]; !ok {
		cat = model.Critical
	}
	out = append(out, Recommendation{Kind: KindTier, Subject: cat.String(), Message: tierMessage(lowerBound, cat)})

	for _, p := range Lowest(scores, focusCount) {
		if scores.Get(p) < WeakPillarScore {
			out = append(out, Recommendation{Kind: KindPillar, Subject: p.String(), Message: pillarMessages[p]})
		}
	}

	for _, g := range gates {
		if g.Passed {
			continue
		}
		out = append(out, Recommendation{Kind: KindGate, Subject: string(g.Gate), Message: gateMessage(g)})
	}
	return out
}

// Lowest returns the n lowest-scoring pillars. Ties keep pillar order.
func Lowest(scores model.PillarScores, n int) []model.Pillar {
	ps := model.AllPillars()
	sort.SliceStable(ps, func(i, j int) bool { return scores.Get(ps[i]) < scores.Get(ps[j]) })
	if n > len(ps) {
		n = len(ps)
	}
	return ps[:n]
}

func tierMessage(lowerBound func(model.RiskCategory) float64, cat model.RiskCategory) string {
	var band string
	switch cat {
	case model.Critical:
		band = fmt.Sprintf("below %g", lowerBound(cat+1))
	case model.VeryLow:
		band = fmt.Sprintf("%g+", lowerBound(cat))
	default:
		band = fmt.Sprintf("%g to under %g", lowerBound(cat), lowerBound(cat+1))
	}
	return fmt.Sprintf("Composite score %s: %s", band, tierAdvice[cat])
}

func gateMessage(g gate.Result) string {
	unmet := g.Unmet()
	parts := make([]string, 0, len(unmet))
	for _, r := range unmet {
		current := "unknown"
		if r.Current != nil {
			current = fmt.Sprint(r.Current)
		}
		parts = append(parts, fmt.Sprintf("%s (need %v, have %s)", r.Metric, r.Required, current))
	}
	name, ok := gateNames[g.Gate]
	if !ok {
		name = string(g.Gate)
	}
	return fmt.Sprintf("%s zone locked until: %s.", name, strings.Join(parts, ", "))
}
