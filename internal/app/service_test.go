package service_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/okian/readiness/internal/adapters/mq/queue"
	"github.com/okian/readiness/internal/adapters/repository"
	service "github.com/okian/readiness/internal/app"
	"github.com/okian/readiness/internal/config"
	"github.com/okian/readiness/internal/domain/model"
	"github.com/okian/readiness/internal/domain/scoring"
	"github.com/okian/readiness/internal/testassessments"
	"github.com/okian/readiness/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

// clock is a settable time source shared with the service.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func eventually(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func testConfig() *config.Config {
	cfg := config.New(context.Background())
	cfg.WorkerCount = 2
	cfg.QueueSize = 64
	cfg.RetentionDays = 30
	return cfg
}

func TestService_New(t *testing.T) {
	Convey("Given default options", t, func() {
		svc, err := service.New(context.Background())

		Convey("Then the engine is built from the defaults", func() {
			So(err, ShouldBeNil)
			So(svc.Engine(), ShouldNotBeNil)
			So(svc.GetStats()["started"], ShouldBeFalse)
		})
	})

	Convey("Given weights that do not sum to one", t, func() {
		cfg := testConfig()
		cfg.Weights.Running = 0.9

		Convey("Then New reports a configuration error", func() {
			_, err := service.New(context.Background(), service.WithConfig(cfg))
			So(errors.Is(err, model.ErrConfiguration), ShouldBeTrue)
		})
	})

	Convey("Given single-field options", t, func() {
		svc, err := service.New(context.Background(),
			service.WithConfig(testConfig()),
			service.WithWorkerCount(3),
			service.WithQueueSize(10),
			service.WithDedupeSize(5),
		)
		So(err, ShouldBeNil)

		Convey("Then they override the config", func() {
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 3)
			So(stats["queueSize"], ShouldEqual, 10)
			So(stats["dedupeSize"], ShouldEqual, 5)
			So(stats["storeDriver"], ShouldEqual, config.DriverMemory)
		})
	})
}

func TestService_NotStarted(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		ctx := context.Background()
		svc, err := service.New(ctx, service.WithConfig(testConfig()))
		So(err, ShouldBeNil)

		Convey("Then pipeline operations are refused", func() {
			_, err := svc.Evaluate(ctx, testassessments.Sample("ath-1"))
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

			err = svc.Enqueue(ctx, queue.Job{SubmissionID: "s-1", Input: testassessments.Sample("ath-1")})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

			_, err = svc.Latest(ctx, "ath-1")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

			_, err = svc.Prune(ctx)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("Then dedupe is inert", func() {
			So(svc.SeenAndRecord(ctx, "s-1"), ShouldBeFalse)
			So(svc.SeenAndRecord(ctx, "s-1"), ShouldBeFalse)
			So(svc.Size(), ShouldEqual, 0)
		})

		Convey("Then Stop is a no-op", func() {
			So(svc.Stop(ctx), ShouldBeNil)
		})
	})
}

func TestService_Pipeline(t *testing.T) {
	Convey("Given a started service with a fixed clock", t, func() {
		ctx := context.Background()
		clk := newClock()
		svc, err := service.New(ctx, service.WithConfig(testConfig()), service.WithClock(clk.Now))
		So(err, ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When an assessment is evaluated synchronously", func() {
			rec, err := svc.Evaluate(ctx, testassessments.Sample("ath-1"))

			Convey("Then the report is stored under a fresh id", func() {
				So(err, ShouldBeNil)
				So(rec.ID, ShouldNotBeEmpty)
				So(rec.AthleteID, ShouldEqual, "ath-1")
				So(rec.EvaluatedAt.Equal(clk.Now()), ShouldBeTrue)
				So(rec.Report.AllowedZones, ShouldNotBeEmpty)

				latest, err := svc.Latest(ctx, "ath-1")
				So(err, ShouldBeNil)
				So(latest.ID, ShouldEqual, rec.ID)
				So(latest.Report.CompositeScore, ShouldAlmostEqual, rec.Report.CompositeScore, 1e-9)
			})

			Convey("And a second one follows later", func() {
				clk.Advance(time.Hour)
				rec2, err := svc.Evaluate(ctx, testassessments.Sample("ath-1"))
				So(err, ShouldBeNil)

				history, err := svc.History(ctx, "ath-1", 10)
				So(err, ShouldBeNil)
				So(len(history), ShouldEqual, 2)
				So(history[0].ID, ShouldEqual, rec2.ID)
				So(history[1].ID, ShouldEqual, rec.ID)
			})
		})

		Convey("When the athlete id is missing", func() {
			_, err := svc.Evaluate(ctx, testassessments.Sample(""))

			Convey("Then the field is named", func() {
				var ve *model.ValidationError
				So(errors.As(err, &ve), ShouldBeTrue)
				So(ve.Field, ShouldEqual, "athlete.athlete_id")
			})
		})

		Convey("When measurements are invalid", func() {
			in := testassessments.Sample("ath-2")
			in.Pillars.ROM.FMSTotal = model.Ptr(30)
			_, err := svc.Evaluate(ctx, in)

			Convey("Then nothing is stored", func() {
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
				_, err := svc.Latest(ctx, "ath-2")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When an assessment is validated without evaluation", func() {
			in := testassessments.Sample("ath-6")
			So(svc.Validate(in), ShouldBeNil)

			in.Pillars.Balance.LeftLegSeconds = nil
			err := svc.Validate(in)

			Convey("Then errors are reported and nothing is stored", func() {
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
				So(model.ValidationFields(err), ShouldContain, "balance.left_leg_seconds")
				So(svc.Validate(testassessments.Sample("")), ShouldNotBeNil)
				_, err := svc.Latest(ctx, "ath-6")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When an assessment is queued", func() {
			So(svc.SeenAndRecord(ctx, "sub-1"), ShouldBeFalse)
			err := svc.Enqueue(ctx, queue.Job{SubmissionID: "sub-1", Input: testassessments.Sample("ath-3")})
			So(err, ShouldBeNil)

			Convey("Then a worker stores the report", func() {
				var rec repository.Record
				So(eventually(5*time.Second, func() bool {
					r, err := svc.Latest(ctx, "ath-3")
					rec = r
					return err == nil
				}), ShouldBeTrue)
				So(rec.SubmissionID, ShouldEqual, "sub-1")
				So(rec.EvaluatedAt.Equal(clk.Now()), ShouldBeTrue)
			})

			Convey("Then the same submission is a duplicate", func() {
				So(svc.SeenAndRecord(ctx, "sub-1"), ShouldBeTrue)
			})
		})

		Convey("When a queued assessment fails validation", func() {
			So(svc.SeenAndRecord(ctx, "bad-1"), ShouldBeFalse)
			in := testassessments.Sample("ath-4")
			in.Pillars.Balance.LeftLegSeconds = nil
			So(svc.Enqueue(ctx, queue.Job{SubmissionID: "bad-1", Input: in}), ShouldBeNil)

			Convey("Then the submission id is released for retry", func() {
				So(eventually(5*time.Second, func() bool { return svc.Size() == 0 }), ShouldBeTrue)
				So(svc.SeenAndRecord(ctx, "bad-1"), ShouldBeFalse)
			})
		})

		Convey("When stats are requested", func() {
			_, err := svc.Evaluate(ctx, testassessments.Sample("ath-5"))
			So(err, ShouldBeNil)
			stats := svc.GetStats()

			Convey("Then pipeline and store figures are included", func() {
				So(stats["started"], ShouldBeTrue)
				So(stats["totalRecords"], ShouldEqual, 1)
				So(stats["totalAthletes"], ShouldEqual, 1)
				So(stats, ShouldContainKey, "queueLength")
				So(stats, ShouldContainKey, "activeWorkers")
			})
		})
	})
}

func TestService_ApplyConfig(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc, err := service.New(ctx, service.WithConfig(testConfig()))
		So(err, ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()
		before := svc.Engine()

		Convey("When valid tables are applied", func() {
			cfg := testConfig()
			cfg.Weights.Running = 0.30
			cfg.Weights.Mobility = 0.20
			So(svc.ApplyConfig(ctx, cfg), ShouldBeNil)

			Convey("Then a new engine is used", func() {
				So(svc.Engine(), ShouldNotPointTo, before)
				So(svc.Engine().Settings().Weights, ShouldResemble, cfg.Weights)
			})
		})

		Convey("When the risk table moves", func() {
			So(svc.Zones()[3].MinScoreToUnlock, ShouldEqual, 55)
			cfg := testConfig()
			cfg.RiskThresholds = scoring.RiskThresholds{High: 50, Medium: 60, Low: 75, VeryLow: 90}
			So(svc.ApplyConfig(ctx, cfg), ShouldBeNil)

			Convey("Then the zone catalogue follows it", func() {
				zones := svc.Zones()
				So(zones[2].MinScoreToUnlock, ShouldEqual, 50)
				So(zones[3].MinScoreToUnlock, ShouldEqual, 60)
				So(zones[5].MinScoreToUnlock, ShouldEqual, 90)
			})
		})

		Convey("When invalid tables are applied", func() {
			cfg := testConfig()
			cfg.RiskThresholds.Low = 99
			err := svc.ApplyConfig(ctx, cfg)

			Convey("Then the old engine stays", func() {
				So(errors.Is(err, model.ErrConfiguration), ShouldBeTrue)
				So(svc.Engine(), ShouldPointTo, before)
			})
		})
	})
}

func TestService_Prune(t *testing.T) {
	Convey("Given stored reports of different ages", t, func() {
		ctx := context.Background()
		clk := newClock()
		svc, err := service.New(ctx, service.WithConfig(testConfig()), service.WithClock(clk.Now))
		So(err, ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		_, err = svc.Evaluate(ctx, testassessments.Sample("old"))
		So(err, ShouldBeNil)
		clk.Advance(20 * 24 * time.Hour)
		_, err = svc.Evaluate(ctx, testassessments.Sample("recent"))
		So(err, ShouldBeNil)

		Convey("When the retention window passes the older one", func() {
			clk.Advance(15 * 24 * time.Hour)
			n, err := svc.Prune(ctx)

			Convey("Then only it is removed", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
				_, err := svc.Latest(ctx, "old")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				_, err = svc.Latest(ctx, "recent")
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestService_Stop(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc, err := service.New(ctx, service.WithConfig(testConfig()))
		So(err, ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When it is stopped twice", func() {
			So(svc.Stop(ctx), ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then reads are refused", func() {
				_, err := svc.Latest(ctx, "ath-1")
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(svc.GetStats()["started"], ShouldBeFalse)
			})

			Convey("Then queued work is refused", func() {
				err := svc.Enqueue(ctx, queue.Job{SubmissionID: "late", Input: testassessments.Sample("ath-1")})
				So(errors.Is(err, queue.ErrClosed), ShouldBeTrue)
			})
		})
	})
}
