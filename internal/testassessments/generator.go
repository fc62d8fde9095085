package testassessments

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/okian/readiness/internal/domain/engine"
	"github.com/okian/readiness/internal/domain/model"
	"github.com/okian/readiness/internal/domain/pillar"
	"github.com/okian/readiness/pkg/logger"
)

// Probability that an optional snapshot field is left out.
const absentSnapshotField = 0.1

var (
	tilts     = []pillar.PelvicTilt{pillar.PelvicNeutral, pillar.PelvicAnterior, pillar.PelvicPosterior}
	severity  = []pillar.Severity{pillar.SeverityNone, pillar.SeverityMild, pillar.SeverityModerate, pillar.SeveritySevere}
	scoliosis = []pillar.ScoliosisScreen{pillar.ScoliosisNegative, pillar.ScoliosisSuspected, pillar.ScoliosisPositive}
)

func ptr[T any](v T) *T { return model.Ptr(v) }

// Sample returns a fixed, valid assessment for a recreational runner in
// their forties.
func Sample(athleteID string) engine.Input {
	return engine.Input{
		Pillars: pillar.Inputs{
			Running: pillar.RunningInput{
				RacePaceSecPerKm: ptr(300.0), WeeklyKm: ptr(30.0), ExperienceYears: ptr(3.0),
				InjuriesLastYear: ptr(1), PainLevel: ptr(2.0),
			},
			Strength: pillar.StrengthInput{SquatReps: ptr(25), PlankSeconds: ptr(60.0)},
			ROM:      pillar.ROMInput{FMSTotal: ptr(14), AnkleDorsiflexionDeg: ptr(45.0), HipFlexionDeg: ptr(60.0)},
			Balance:  pillar.BalanceInput{LeftLegSeconds: ptr(45.0), RightLegSeconds: ptr(70.0)},
			Alignment: pillar.AlignmentInput{
				QAngleDeg: ptr(15.0), Overpronation: ptr(false), PelvicTilt: ptr(pillar.PelvicNeutral),
				ForwardHead: ptr(pillar.SeverityNone), ScoliosisScreening: ptr(pillar.ScoliosisNegative),
			},
			Mobility: pillar.MobilityInput{
				AnkleDorsiflexionDeg: ptr(36.0), SitAndReachCm: ptr(15.0), DeepSquatScore: ptr(2), Age: ptr(40),
			},
		},
		Athlete: model.AthleteSnapshot{
			AthleteID:               athleteID,
			Age:                     ptr(40),
			RestingHR:               ptr(60),
			CumulativeKm:            ptr(750.0),
			WeeksInjuryFree:         ptr(10),
			WeeksFoundationTraining: ptr(8),
			WeeksPowerZoneTraining:  ptr(4),
			PerfectForm:             ptr(false),
		},
	}
}

// Random returns a valid assessment with every measurement drawn from a
// plausible range. Some snapshot fields are left out so reports without
// HR zones or a training phase are exercised too.
func Random(rng *rand.Rand, athleteID string) engine.Input {
	between := func(lo, hi float64) float64 { return lo + rng.Float64()*(hi-lo) }
	upTo := func(n int) int { return rng.Intn(n + 1) }
	age := 15 + rng.Intn(61)

	in := engine.Input{
		Pillars: pillar.Inputs{
			Running: pillar.RunningInput{
				RacePaceSecPerKm: ptr(between(150, 600)),
				WeeklyKm:         ptr(between(0, 120)),
				ExperienceYears:  ptr(between(0, 20)),
				InjuriesLastYear: ptr(upTo(4)),
				PainLevel:        ptr(between(0, 10)),
			},
			Strength: pillar.StrengthInput{SquatReps: ptr(upTo(60)), PlankSeconds: ptr(between(0, 180))},
			ROM: pillar.ROMInput{
				FMSTotal:             ptr(upTo(21)),
				AnkleDorsiflexionDeg: ptr(between(0, 50)),
				HipFlexionDeg:        ptr(between(30, 140)),
			},
			Balance: pillar.BalanceInput{LeftLegSeconds: ptr(between(0, 90)), RightLegSeconds: ptr(between(0, 90))},
			Alignment: pillar.AlignmentInput{
				QAngleDeg:          ptr(between(5, 25)),
				Overpronation:      ptr(rng.Intn(2) == 0),
				PelvicTilt:         ptr(tilts[rng.Intn(len(tilts))]),
				ForwardHead:        ptr(severity[rng.Intn(len(severity))]),
				ScoliosisScreening: ptr(scoliosis[rng.Intn(len(scoliosis))]),
			},
			Mobility: pillar.MobilityInput{
				AnkleDorsiflexionDeg: ptr(between(0, 50)),
				SitAndReachCm:        ptr(between(-20, 40)),
				DeepSquatScore:       ptr(upTo(3)),
				Age:                  ptr(age),
			},
		},
		Athlete: model.AthleteSnapshot{AthleteID: athleteID},
	}

	present := func() bool { return rng.Float64() >= absentSnapshotField }
	snap := &in.Athlete
	if present() {
		snap.Age = ptr(age)
		snap.RestingHR = ptr(40 + rng.Intn(51))
	}
	if present() {
		snap.CumulativeKm = ptr(between(0, 6000))
	}
	if present() {
		snap.WeeksInjuryFree = ptr(upTo(52))
	}
	if present() {
		snap.WeeksFoundationTraining = ptr(upTo(30))
	}
	if present() {
		snap.WeeksPowerZoneTraining = ptr(upTo(30))
	}
	if present() {
		snap.PerfectForm = ptr(rng.Intn(2) == 0)
	}
	return in
}

// generateSubmissions builds cfg.NumAssessments submissions spread over
// cfg.NumAthletes athletes.
func generateSubmissions(ctx context.Context, cfg *Config, stats *Stats) ([]Submission, error) {
	if cfg.NumAssessments < 1 {
		return nil, fmt.Errorf("number of assessments must be positive, got %d", cfg.NumAssessments)
	}
	athletes := cfg.NumAthletes
	if athletes < 1 || athletes > cfg.NumAssessments {
		athletes = cfg.NumAssessments
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	logger.Get().Info(ctx, "generating assessments",
		logger.Int("assessments", cfg.NumAssessments),
		logger.Int("athletes", athletes),
		logger.Any("seed", seed),
	)

	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible load, not security
	athleteIDs := make([]string, athletes)
	for i := range athleteIDs {
		athleteIDs[i] = uuid.NewString()
	}

	subs := make([]Submission, cfg.NumAssessments)
	for i := range subs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during generation: %w", err)
		}
		subs[i] = Submission{
			SubmissionID: uuid.NewString(),
			Input:        Random(rng, athleteIDs[i%athletes]),
		}
	}

	stats.Generated = len(subs)
	logger.Get().Info(ctx, "generated assessments", logger.Int("count", len(subs)))
	return subs, nil
}
