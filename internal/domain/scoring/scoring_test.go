package scoring_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/okian/readiness/internal/domain/model"
	scoring "github.com/okian/readiness/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func uniform(v float64) model.PillarScores {
	return model.PillarScores{Running: v, Strength: v, ROM: v, Balance: v, Alignment: v, Mobility: v}
}

func randomScores(rng *rand.Rand) model.PillarScores {
	var s model.PillarScores
	for _, p := range model.AllPillars() {
		s = s.With(p, rng.Float64()*100)
	}
	return s
}

func TestWeights(t *testing.T) {
	Convey("Given the default weight table", t, func() {
		w := scoring.DefaultWeights()

		Convey("Then it sums to 1 within tolerance", func() {
			So(math.Abs(w.Sum()-1), ShouldBeLessThanOrEqualTo, scoring.WeightTolerance)
			So(w.Validate(), ShouldBeNil)
		})

		Convey("When a weight is shifted so the sum drifts", func() {
			w.Running = 0.5

			Convey("Then construction fails with a configuration error", func() {
				_, err := scoring.NewAggregator(w)
				So(errors.Is(err, model.ErrConfiguration), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "sum to 1.0")
			})
		})

		Convey("When a weight is negative", func() {
			w.Running = -0.1
			w.Strength = 0.65

			Convey("Then construction fails naming the pillar", func() {
				_, err := scoring.NewAggregator(w)
				var ce *model.ConfigurationError
				So(errors.As(err, &ce), ShouldBeTrue)
				So(ce.Rule, ShouldContainSubstring, "running")
			})
		})
	})
}

func TestAggregate(t *testing.T) {
	Convey("Given an aggregator with the default weights", t, func() {
		agg, err := scoring.NewAggregator(scoring.DefaultWeights())
		So(err, ShouldBeNil)

		Convey("When every pillar is 100", func() {
			c, err := agg.Aggregate(uniform(100))
			So(err, ShouldBeNil)
			So(c, ShouldAlmostEqual, 100, 1e-9)
		})

		Convey("When every pillar is 0", func() {
			c, err := agg.Aggregate(uniform(0))
			So(err, ShouldBeNil)
			So(c, ShouldEqual, 0.0)
		})

		Convey("When running is 80 and the rest are 60", func() {
			c, err := agg.Aggregate(uniform(60).With(model.Running, 80))
			So(err, ShouldBeNil)
			So(c, ShouldAlmostEqual, 68, 1e-9)
		})

		Convey("When a pillar is out of range", func() {
			_, err := agg.Aggregate(uniform(50).With(model.Balance, -1))
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})

		Convey("When pillars arrive as a partial map", func() {
			_, err := agg.AggregatePartial(map[model.Pillar]float64{
				model.Running: 90, model.Strength: 90, model.ROM: 90, model.Balance: 90,
			})

			Convey("Then the missing pillars are named instead of defaulted", func() {
				var mp *model.MissingPillarError
				So(errors.As(err, &mp), ShouldBeTrue)
				So(mp.Missing, ShouldResemble, []model.Pillar{model.Alignment, model.Mobility})
			})
		})

		Convey("When random valid inputs are aggregated", func() {
			rng := rand.New(rand.NewSource(7)) //nolint:gosec // deterministic property sampling
			for i := 0; i < 500; i++ {
				s := randomScores(rng)
				c, err := agg.Aggregate(s)
				So(err, ShouldBeNil)
				So(c, ShouldBeBetweenOrEqual, 0.0, 100.0)
				for _, p := range model.AllPillars() {
					raised := math.Min(100, s.Get(p)+rng.Float64()*20)
					c2, err := agg.Aggregate(s.With(p, raised))
					So(err, ShouldBeNil)
					So(c2, ShouldBeGreaterThanOrEqualTo, c)
				}
			}
		})
	})
}

func TestClassifier(t *testing.T) {
	Convey("Given the default classifier", t, func() {
		c, err := scoring.NewClassifier(scoring.DefaultRiskThresholds())
		So(err, ShouldBeNil)

		Convey("Then breakpoints use inclusive lower bounds", func() {
			cases := []struct {
				score float64
				want  model.RiskCategory
			}{
				{0, model.Critical},
				{39.999, model.Critical},
				{40, model.High},
				{54.9, model.High},
				{55, model.Medium},
				{68, model.Medium},
				{70, model.Low},
				{84.99, model.Low},
				{85, model.VeryLow},
				{100, model.VeryLow},
			}
			for _, tc := range cases {
				So(c.Classify(tc.score), ShouldEqual, tc.want)
			}
		})

		Convey("Then NaN is treated as Critical", func() {
			So(c.Classify(math.NaN()), ShouldEqual, model.Critical)
		})

		Convey("Then the category never decreases as the score grows", func() {
			prev := model.Critical
			for s := 0.0; s <= 100; s += 0.25 {
				cat := c.Classify(s)
				So(int(cat), ShouldBeGreaterThanOrEqualTo, int(prev))
				prev = cat
			}
		})

		Convey("Then lower bounds are exposed per category", func() {
			So(c.LowerBound(model.Low), ShouldEqual, 70.0)
			So(c.LowerBound(model.Critical), ShouldEqual, 0.0)
			So(len(c.Table()), ShouldEqual, 5)
		})
	})

	Convey("Given thresholds that are not strictly descending", t, func() {
		th := scoring.DefaultRiskThresholds()
		th.Low = 90

		Convey("Then construction fails", func() {
			_, err := scoring.NewClassifier(th)
			So(errors.Is(err, model.ErrConfiguration), ShouldBeTrue)
		})
	})
}
