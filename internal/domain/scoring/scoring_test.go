package scoring_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/clanpulse/internal/domain/model"
	scoring "github.com/okian/clanpulse/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewWeights(t *testing.T) {
	Convey("Given weight tuples", t, func() {
		Convey("When the tuple is in range and non-increasing", func() {
			w, err := scoring.NewWeights(1, 0.6, 0.2, 0)

			Convey("Then it is accepted", func() {
				So(err, ShouldBeNil)
				v, ok := w.For(model.AtRisk)
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 0.6)
			})
		})

		Convey("When a weight is above one", func() {
			_, err := scoring.NewWeights(1.2, 0.5, 0.1, 0)

			Convey("Then it fails with InvalidInput naming the field", func() {
				So(errors.Is(err, scoring.ErrInvalidInput), ShouldBeTrue)
				var ve *scoring.ValidationError
				So(errors.As(err, &ve), ShouldBeTrue)
				So(ve.Field, ShouldEqual, "weight_active")
			})
		})

		Convey("When a weight is negative", func() {
			_, err := scoring.NewWeights(1, 0.5, -0.1, 0)

			Convey("Then it fails with InvalidInput", func() {
				So(errors.Is(err, scoring.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When a weight is NaN", func() {
			_, err := scoring.NewWeights(1, math.NaN(), 0.1, 0)

			Convey("Then it fails with InvalidInput", func() {
				So(errors.Is(err, scoring.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When a worse state outweighs a better one", func() {
			_, err := scoring.NewWeights(0.5, 0.8, 0.1, 0)

			Convey("Then it fails because monotonicity would break", func() {
				var ve *scoring.ValidationError
				So(errors.As(err, &ve), ShouldBeTrue)
				So(ve.Field, ShouldEqual, "weight_at_risk")
			})
		})
	})
}

func TestHealth(t *testing.T) {
	Convey("Given default weights", t, func() {
		w := scoring.DefaultWeights()

		Convey("When every member is active", func() {
			score, ok := scoring.Health(map[model.ActivityState]int{model.Active: 12}, w)

			Convey("Then the score is 100", func() {
				So(ok, ShouldBeTrue)
				So(score, ShouldEqual, 100)
			})
		})

		Convey("When every member is churned", func() {
			score, ok := scoring.Health(map[model.ActivityState]int{model.Churned: 5}, w)

			Convey("Then the score is 0", func() {
				So(ok, ShouldBeTrue)
				So(score, ShouldEqual, 0)
			})
		})

		Convey("When the roster is mixed", func() {
			score, ok := scoring.Health(map[model.ActivityState]int{
				model.Active:   2,
				model.AtRisk:   1,
				model.Inactive: 0,
				model.Churned:  1,
			}, w)

			Convey("Then the score is the weighted fraction scaled to 100", func() {
				So(ok, ShouldBeTrue)
				So(score, ShouldAlmostEqual, (2*1.0+1*0.5)/4*100, 1e-9)
			})
		})

		Convey("When only insufficient-data members exist", func() {
			_, ok := scoring.Health(map[model.ActivityState]int{model.InsufficientData: 3}, w)

			Convey("Then the score is undefined", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When there are no members", func() {
			_, ok := scoring.Health(map[model.ActivityState]int{}, w)

			Convey("Then the score is undefined", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When insufficient-data members sit beside classified ones", func() {
			with, _ := scoring.Health(map[model.ActivityState]int{model.Active: 1, model.Churned: 1, model.InsufficientData: 8}, w)
			without, _ := scoring.Health(map[model.ActivityState]int{model.Active: 1, model.Churned: 1}, w)

			Convey("Then they do not dilute the score", func() {
				So(with, ShouldEqual, without)
				So(with, ShouldEqual, 50)
			})
		})
	})
}

func TestHealthMonotonic(t *testing.T) {
	Convey("Given every roster of up to six members", t, func() {
		weightSets := []scoring.Weights{scoring.DefaultWeights()}
		if w, err := scoring.NewWeights(0.9, 0.9, 0.3, 0.3); err == nil {
			weightSets = append(weightSets, w)
		}

		Convey("Then improving any one member's state never lowers the score", func() {
			violations := 0
			for _, w := range weightSets {
				for a := 0; a <= 6; a++ {
					for r := 0; a+r <= 6; r++ {
						for i := 0; a+r+i <= 6; i++ {
							for c := 0; a+r+i+c <= 6; c++ {
								counts := [4]int{a, r, i, c}
								base, _ := scoring.Health(toMap(counts), w)
								for from := 1; from < 4; from++ {
									if counts[from] == 0 {
										continue
									}
									for to := 0; to < from; to++ {
										moved := counts
										moved[from]--
										moved[to]++
										better, _ := scoring.Health(toMap(moved), w)
										if better < base-1e-9 {
											violations++
										}
									}
								}
							}
						}
					}
				}
			}
			So(violations, ShouldEqual, 0)
		})
	})
}

func toMap(c [4]int) map[model.ActivityState]int {
	return map[model.ActivityState]int{
		model.Active:   c[0],
		model.AtRisk:   c[1],
		model.Inactive: c[2],
		model.Churned:  c[3],
	}
}
