package model_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"

	model "github.com/okian/readiness/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPillarScoresFromMap(t *testing.T) {
	Convey("Given a loosely-typed pillar map", t, func() {
		full := map[model.Pillar]float64{
			model.Running: 80, model.Strength: 60, model.ROM: 60,
			model.Balance: 60, model.Alignment: 60, model.Mobility: 60,
		}

		Convey("When every pillar is present", func() {
			s, err := model.PillarScoresFromMap(full)

			Convey("Then the typed record is populated", func() {
				So(err, ShouldBeNil)
				So(s.Running, ShouldEqual, 80.0)
				So(s.Get(model.Mobility), ShouldEqual, 60.0)
			})
		})

		Convey("When two pillars are absent", func() {
			delete(full, model.ROM)
			delete(full, model.Mobility)
			_, err := model.PillarScoresFromMap(full)

			Convey("Then a MissingPillarError names both", func() {
				var mp *model.MissingPillarError
				So(errors.As(err, &mp), ShouldBeTrue)
				So(mp.Missing, ShouldResemble, []model.Pillar{model.ROM, model.Mobility})
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "rom, mobility")
			})
		})

		Convey("When a pillar is out of range", func() {
			full[model.Balance] = 101
			_, err := model.PillarScoresFromMap(full)

			Convey("Then a ValidationError names the field", func() {
				var ve *model.ValidationError
				So(errors.As(err, &ve), ShouldBeTrue)
				So(ve.Field, ShouldEqual, "pillars.balance")
			})
		})

		Convey("When a pillar is NaN", func() {
			full[model.Running] = math.NaN()
			_, err := model.PillarScoresFromMap(full)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
			})
		})
	})
}

func TestPillarScoresJSON(t *testing.T) {
	Convey("Given JSON pillar payloads", t, func() {
		Convey("When a key is omitted", func() {
			var s model.PillarScores
			err := json.Unmarshal([]byte(`{"running":50,"strength":50,"rom":50,"balance":50,"alignment":50}`), &s)

			Convey("Then decoding fails instead of defaulting to zero", func() {
				var mp *model.MissingPillarError
				So(errors.As(err, &mp), ShouldBeTrue)
				So(mp.Missing, ShouldResemble, []model.Pillar{model.Mobility})
			})
		})

		Convey("When pillars are present but null", func() {
			var s model.PillarScores
			err := json.Unmarshal([]byte(`{"running":null,"strength":50,"rom":50,"balance":50,"alignment":null,"mobility":50}`), &s)

			Convey("Then they are reported missing rather than zero", func() {
				var mp *model.MissingPillarError
				So(errors.As(err, &mp), ShouldBeTrue)
				So(mp.Missing, ShouldResemble, []model.Pillar{model.Running, model.Alignment})
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
				So(s, ShouldResemble, model.PillarScores{})
			})
		})

		Convey("When an unknown key is present", func() {
			var s model.PillarScores
			err := json.Unmarshal([]byte(`{"running":50,"strength":50,"rom":50,"balance":50,"alignment":50,"mobility":50,"speed":1}`), &s)

			Convey("Then decoding fails", func() {
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
			})
		})

		Convey("When the payload round-trips", func() {
			in := model.PillarScores{Running: 1, Strength: 2, ROM: 3, Balance: 4, Alignment: 5, Mobility: 6}
			b, err := json.Marshal(in)
			So(err, ShouldBeNil)
			var out model.PillarScores
			So(json.Unmarshal(b, &out), ShouldBeNil)

			Convey("Then the values are preserved", func() {
				So(out, ShouldResemble, in)
			})
		})
	})
}

func TestEnums(t *testing.T) {
	Convey("Given the pillar and risk enums", t, func() {
		Convey("Then names are stable", func() {
			So(model.ROM.String(), ShouldEqual, "rom")
			So(model.VeryLow.String(), ShouldEqual, "very_low")
			So(model.Critical < model.VeryLow, ShouldBeTrue)
		})

		Convey("Then risk categories marshal as text", func() {
			b, err := json.Marshal(model.Medium)
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, `"medium"`)

			var c model.RiskCategory
			So(json.Unmarshal([]byte(`"high"`), &c), ShouldBeNil)
			So(c, ShouldEqual, model.High)
		})

		Convey("Then Clamp bounds values", func() {
			So(model.Clamp(-3), ShouldEqual, 0.0)
			So(model.Clamp(130), ShouldEqual, 100.0)
			So(model.Clamp(math.NaN()), ShouldEqual, 0.0)
			So(model.Clamp(42.5), ShouldEqual, 42.5)
		})
	})
}

func TestValidationFields(t *testing.T) {
	Convey("Given joined and wrapped validation errors", t, func() {
		err := fmt.Errorf("evaluating: %w", errors.Join(
			model.Missing("running.pain_level"),
			errors.Join(model.OutOfRange("rom.fms_total", 22, 0, 21)),
			&model.MissingPillarError{Missing: []model.Pillar{model.Balance}},
			errors.New("unrelated"),
		))

		Convey("Then every field is listed in order", func() {
			So(model.ValidationFields(err), ShouldResemble,
				[]string{"running.pain_level", "rom.fms_total", "pillars.balance"})
		})

		Convey("Then a nil error lists nothing", func() {
			So(model.ValidationFields(nil), ShouldBeEmpty)
		})
	})
}
