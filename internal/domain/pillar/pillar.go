package pillar

import (
	"errors"
	"fmt"
	"math"

	"github.com/okian/readiness/internal/domain/model"
)

// Running scoring constants.
const (
	paceFloorSecPerKm   = 480.0 // 8:00/km earns no pace credit
	paceCeilSecPerKm    = 180.0 // 3:00/km earns full pace credit
	paceMaxPoints       = 40.0
	weeklyKmCeiling     = 60.0
	volumeMaxPoints     = 35.0
	pointsPerYear       = 5.0
	experienceMaxPoints = 25.0
	injuryPenalty       = 8.0
	painPenaltyPerPoint = 3.0
)

// Strength scoring constants.
const (
	squatRepsCeiling  = 50.0
	plankSecCeiling   = 120.0
	strengthHalfShare = 50.0
)

// ROM scoring constants.
const (
	fmsMax          = 21
	romFMSWeight    = 0.50
	romAnkleWeight  = 0.25
	romHipWeight    = 0.25
	ankleRangeMax   = 45.0
	hipFlexRangeMax = 120.0
)

// Balance scoring constants.
const (
	stanceCeilingSec   = 60.0
	stanceFullCreditAt = 30.0
	reducedCredit      = 0.75
)

// Mobility scoring constants.
const (
	mobAnkleWeight    = 0.40
	mobReachWeight    = 0.35
	mobSquatWeight    = 0.25
	reachMinCm        = -20.0
	reachMaxCm        = 30.0
	deepSquatMax      = 3
	agePenaltyFrom    = 30
	agePenaltyPerYear = 0.5
	mobilityMinAge    = 5
	mobilityMaxAge    = 110
)

// Alignment penalties.
const (
	qAngleMin         = 8.0
	qAngleMax         = 20.0
	qAnglePenalty     = 15.0
	pronationPenalty  = 15.0
	pelvicTiltPenalty = 10.0
)

var forwardHeadPenalty = map[Severity]float64{
	SeverityNone:     0,
	SeverityMild:     5,
	SeverityModerate: 10,
	SeveritySevere:   20,
}

var scoliosisPenalty = map[ScoliosisScreen]float64{
	ScoliosisNegative:  0,
	ScoliosisSuspected: 10,
	ScoliosisPositive:  20,
}

// reader collects every validation failure of one record.
type reader struct {
	prefix string
	errs   []error
}

func (r *reader) float(name string, v *float64, lo, hi float64) float64 {
	out, err := float(r.prefix+"."+name, v, lo, hi)
	if err != nil {
		r.errs = append(r.errs, err)
	}
	return out
}

func (r *reader) integer(name string, v *int, lo, hi int) float64 {
	out, err := integer(r.prefix+"."+name, v, lo, hi)
	if err != nil {
		r.errs = append(r.errs, err)
	}
	return out
}

func (r *reader) fail(err error) { r.errs = append(r.errs, err) }

func (r *reader) err() error { return errors.Join(r.errs...) }

// Running scores aerobic capacity, volume and experience, less injury and
// pain penalties.
func Running(in RunningInput) (float64, error) {
	r := reader{prefix: "running"}
	pace := r.float("race_pace_sec_per_km", in.RacePaceSecPerKm, 120, 1200)
	weekly := r.float("weekly_km", in.WeeklyKm, 0, 400)
	years := r.float("experience_years", in.ExperienceYears, 0, 80)
	injuries := r.integer("injuries_last_year", in.InjuriesLastYear, 0, 50)
	pain := r.float("pain_level", in.PainLevel, 0, 10)
	if err := r.err(); err != nil {
		return 0, err
	}

	paceScore := paceMaxPoints * (paceFloorSecPerKm - pace) / (paceFloorSecPerKm - paceCeilSecPerKm)
	paceScore = math.Max(0, math.Min(paceMaxPoints, paceScore))
	volume := volumeMaxPoints * ratio(weekly, weeklyKmCeiling)
	experience := math.Min(pointsPerYear*years, experienceMaxPoints)

	score := paceScore + volume + experience - injuryPenalty*injuries - painPenaltyPerPoint*pain
	return model.Clamp(score), nil
}

// Strength splits credit evenly between squat repetitions and plank hold.
func Strength(in StrengthInput) (float64, error) {
	r := reader{prefix: "strength"}
	reps := r.integer("squat_reps", in.SquatReps, 0, 1000)
	plank := r.float("plank_seconds", in.PlankSeconds, 0, 3600)
	if err := r.err(); err != nil {
		return 0, err
	}
	score := strengthHalfShare*ratio(reps, squatRepsCeiling) + strengthHalfShare*ratio(plank, plankSecCeiling)
	return model.Clamp(score), nil
}

// ROM blends the movement screen total with ankle and hip range.
func ROM(in ROMInput) (float64, error) {
	r := reader{prefix: "rom"}
	fms := r.integer("fms_total", in.FMSTotal, 0, fmsMax)
	ankle := r.float("ankle_dorsiflexion_deg", in.AnkleDorsiflexionDeg, 0, 90)
	hip := r.float("hip_flexion_deg", in.HipFlexionDeg, 0, 180)
	if err := r.err(); err != nil {
		return 0, err
	}
	score := romFMSWeight*fms/fmsMax*model.MaxScore +
		romAnkleWeight*rescale(ankle, 0, ankleRangeMax) +
		romHipWeight*rescale(hip, 0, hipFlexRangeMax)
	return model.Clamp(score), nil
}

// Balance scores the weaker leg's single-leg stance. Holds shorter than
// 30s earn reduced credit.
func Balance(in BalanceInput) (float64, error) {
	r := reader{prefix: "balance"}
	left := r.float("left_leg_seconds", in.LeftLegSeconds, 0, 3600)
	right := r.float("right_leg_seconds", in.RightLegSeconds, 0, 3600)
	if err := r.err(); err != nil {
		return 0, err
	}
	s := math.Min(left, right)
	switch {
	case s >= stanceCeilingSec:
		return model.MaxScore, nil
	case s >= stanceFullCreditAt:
		return model.Clamp(s / stanceCeilingSec * model.MaxScore), nil
	default:
		return model.Clamp(reducedCredit * s / stanceCeilingSec * model.MaxScore), nil
	}
}

// Mobility combines ankle dorsiflexion, sit-and-reach and the deep squat
// screen, less 0.5 points per year of age above 30.
func Mobility(in MobilityInput) (float64, error) {
	r := reader{prefix: "mobility"}
	ankle := r.float("ankle_dorsiflexion_deg", in.AnkleDorsiflexionDeg, 0, 90)
	reach := r.float("sit_and_reach_cm", in.SitAndReachCm, -60, 80)
	squat := r.integer("deep_squat_score", in.DeepSquatScore, 0, deepSquatMax)
	age := r.integer("age", in.Age, mobilityMinAge, mobilityMaxAge)
	if err := r.err(); err != nil {
		return 0, err
	}
	score := mobAnkleWeight*rescale(ankle, 0, ankleRangeMax) +
		mobReachWeight*rescale(reach, reachMinCm, reachMaxCm) +
		mobSquatWeight*squat/deepSquatMax*model.MaxScore
	score -= agePenaltyPerYear * math.Max(age-agePenaltyFrom, 0)
	return model.Clamp(score), nil
}

// Alignment starts at 100 and subtracts fixed posture penalties.
func Alignment(in AlignmentInput) (float64, error) {
	r := reader{prefix: "alignment"}
	q := r.float("q_angle_deg", in.QAngleDeg, 0, 45)

	score := model.MaxScore
	if q < qAngleMin || q > qAngleMax {
		score -= qAnglePenalty
	}

	switch {
	case in.Overpronation == nil:
		r.fail(model.Missing("alignment.overpronation"))
	case *in.Overpronation:
		score -= pronationPenalty
	}

	switch {
	case in.PelvicTilt == nil:
		r.fail(model.Missing("alignment.pelvic_tilt"))
	case *in.PelvicTilt == PelvicNeutral:
	case *in.PelvicTilt == PelvicAnterior, *in.PelvicTilt == PelvicPosterior:
		score -= pelvicTiltPenalty
	default:
		r.fail(&model.ValidationError{Field: "alignment.pelvic_tilt", Rule: fmt.Sprintf("unknown value %q", *in.PelvicTilt)})
	}

	if in.ForwardHead == nil {
		r.fail(model.Missing("alignment.forward_head"))
	} else if p, ok := forwardHeadPenalty[*in.ForwardHead]; ok {
		score -= p
	} else {
		r.fail(&model.ValidationError{Field: "alignment.forward_head", Rule: fmt.Sprintf("unknown value %q", *in.ForwardHead)})
	}

	if in.ScoliosisScreening == nil {
		r.fail(model.Missing("alignment.scoliosis_screening"))
	} else if p, ok := scoliosisPenalty[*in.ScoliosisScreening]; ok {
		score -= p
	} else {
		r.fail(&model.ValidationError{Field: "alignment.scoliosis_screening", Rule: fmt.Sprintf("unknown value %q", *in.ScoliosisScreening)})
	}

	if err := r.err(); err != nil {
		return 0, err
	}
	return model.Clamp(score), nil
}

// Calculate runs all six calculators. Failures from every record are joined
// so the caller sees the full list of bad fields.
func Calculate(in Inputs) (model.PillarScores, error) {
	var (
		s    model.PillarScores
		errs []error
		err  error
	)
	if s.Running, err = Running(in.Running); err != nil {
		errs = append(errs, err)
	}
	if s.Strength, err = Strength(in.Strength); err != nil {
		errs = append(errs, err)
	}
	if s.ROM, err = ROM(in.ROM); err != nil {
		errs = append(errs, err)
	}
	if s.Balance, err = Balance(in.Balance); err != nil {
		errs = append(errs, err)
	}
	if s.Alignment, err = Alignment(in.Alignment); err != nil {
		errs = append(errs, err)
	}
	if s.Mobility, err = Mobility(in.Mobility); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return model.PillarScores{}, errors.Join(errs...)
	}
	return s, nil
}
