package testassessments

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/readiness/internal/adapters/repository"
	"github.com/okian/readiness/internal/domain/gate"
	"github.com/okian/readiness/internal/domain/model"
	"github.com/okian/readiness/internal/domain/pillar"
	"github.com/okian/readiness/internal/domain/zone"
	"github.com/okian/readiness/pkg/logger"
)

const pillarTolerance = 1e-9

// verifyReports checks every fetched report against the submission it came
// from. Pillar scores do not depend on server configuration, so they are
// recomputed locally and compared.
func verifyReports(ctx context.Context, cfg *Config, subs []Submission, reports map[string]repository.Record, stats *Stats) error {
	bySubmission := make(map[string]Submission, len(subs))
	for _, s := range subs {
		bySubmission[s.SubmissionID] = s
	}

	categories := make(map[model.RiskCategory]int)
	var violations []string
	for athleteID, rec := range reports {
		categories[rec.Report.RiskCategory]++
		for _, v := range checkReport(rec, bySubmission) {
			violations = append(violations, athleteID+": "+v)
		}
	}

	for _, cat := range model.AllRiskCategories() {
		logger.Get().Info(ctx, "risk distribution",
			logger.String("category", cat.String()),
			logger.Int("athletes", categories[cat]),
		)
	}

	stats.Violations = len(violations)
	if len(violations) == 0 {
		logger.Get().Info(ctx, "report verification passed", logger.Int("reports", len(reports)))
		return nil
	}
	limit := len(violations)
	if !cfg.Verbose && limit > 10 {
		limit = 10
	}
	for _, v := range violations[:limit] {
		logger.Get().Warn(ctx, "report violation", logger.String("detail", v))
	}
	return fmt.Errorf("%d report violations", len(violations))
}

func checkReport(rec repository.Record, bySubmission map[string]Submission) []string {
	var out []string
	r := rec.Report

	if math.IsNaN(r.CompositeScore) || r.CompositeScore < model.MinScore || r.CompositeScore > model.MaxScore {
		out = append(out, fmt.Sprintf("composite %g outside [0,100]", r.CompositeScore))
	}

	sub, ok := bySubmission[rec.SubmissionID]
	switch {
	case !ok:
		out = append(out, fmt.Sprintf("unknown submission %q", rec.SubmissionID))
	case sub.Athlete.AthleteID != rec.AthleteID:
		out = append(out, fmt.Sprintf("submission %s belongs to %s", rec.SubmissionID, sub.Athlete.AthleteID))
	default:
		want, err := pillar.Calculate(sub.Pillars)
		if err != nil {
			out = append(out, "submission does not score locally: "+err.Error())
			break
		}
		for _, p := range model.AllPillars() {
			if math.Abs(want.Get(p)-r.Pillars.Get(p)) > pillarTolerance {
				out = append(out, fmt.Sprintf("%s score %g, expected %g", p, r.Pillars.Get(p), want.Get(p)))
			}
		}
	}

	if len(r.AllowedZones) == 0 || r.AllowedZones[0] != zone.ActiveRecovery {
		out = append(out, fmt.Sprintf("allowed zones %v do not start with AR", r.AllowedZones))
	}
	passed := map[gate.Name]bool{
		r.SafetyGates.Power.Gate: r.SafetyGates.Power.Passed,
		r.SafetyGates.Speed.Gate: r.SafetyGates.Speed.Passed,
	}
	for _, c := range r.AllowedZones {
		z, ok := zone.Lookup(c)
		switch {
		case !ok:
			out = append(out, fmt.Sprintf("unknown zone %q allowed", c))
		case z.RequiresSafetyGate && !passed[z.SafetyGate]:
			out = append(out, fmt.Sprintf("%s zone allowed with the %s gate locked", c, z.SafetyGate))
		}
	}
	if len(r.Recommendations) == 0 {
		out = append(out, "no recommendations")
	}
	return out
}
