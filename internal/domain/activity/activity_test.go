package activity_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/clanpulse/internal/domain/activity"
	"github.com/okian/clanpulse/internal/domain/model"
	"github.com/okian/clanpulse/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2026, 5, 20, 18, 0, 0, 0, time.UTC)

func daysAgo(d int) time.Time {
	return now.Add(-time.Duration(d) * 24 * time.Hour)
}

func tracked(name string, xp int64, lastDays int) model.Member {
	return model.Member{Username: name, Experience: xp, Tracked: true, Role: "member", LastChanged: daysAgo(lastDays)}
}

func mustEngine(t *testing.T, opts ...activity.Option) *activity.Engine {
	t.Helper()
	cfg, err := activity.NewConfig(opts...)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return activity.NewEngine(cfg)
}

func TestThresholds(t *testing.T) {
	Convey("Given threshold tuples", t, func() {
		Convey("When they are strictly ordered", func() {
			th, err := activity.NewThresholds(3, 10, 40)

			Convey("Then they are accepted", func() {
				So(err, ShouldBeNil)
				So(th.Active(), ShouldEqual, 3)
				So(th.AtRisk(), ShouldEqual, 10)
				So(th.Inactive(), ShouldEqual, 40)
			})
		})

		Convey("When active exceeds at-risk", func() {
			_, err := activity.NewThresholds(30, 7, 90)

			Convey("Then construction fails with InvalidInput", func() {
				So(errors.Is(err, activity.ErrInvalidInput), ShouldBeTrue)
				var ve *activity.ValidationError
				So(errors.As(err, &ve), ShouldBeTrue)
				So(ve.Field, ShouldEqual, "at_risk_days")
			})
		})

		Convey("When two thresholds are equal", func() {
			_, err := activity.NewThresholds(7, 30, 30)

			Convey("Then construction fails", func() {
				So(errors.Is(err, activity.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When active is negative", func() {
			_, err := activity.NewThresholds(-1, 30, 90)

			Convey("Then construction fails", func() {
				So(errors.Is(err, activity.ErrInvalidInput), ShouldBeTrue)
			})
		})
	})
}

func TestClassify(t *testing.T) {
	Convey("Given default thresholds", t, func() {
		th := activity.DefaultThresholds()

		Convey("Then each bound is inclusive for the state it closes", func() {
			cases := map[int]model.ActivityState{
				0:   model.Active,
				7:   model.Active,
				8:   model.AtRisk,
				30:  model.AtRisk,
				31:  model.Inactive,
				90:  model.Inactive,
				91:  model.Churned,
				900: model.Churned,
			}
			for days, want := range cases {
				got, err := activity.Classify(days, th)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, want)
			}
		})

		Convey("When days are negative", func() {
			_, err := activity.Classify(-1, th)

			Convey("Then classification fails", func() {
				So(errors.Is(err, activity.ErrInvalidInput), ShouldBeTrue)
			})
		})
	})
}

func TestObserve(t *testing.T) {
	Convey("Given a roster with mixed evidence", t, func() {
		r := model.Roster{
			Now: now,
			Members: []model.Member{
				tracked("gain", 10, 12),
				{Username: "joined", Tracked: true, JoinedAt: daysAgo(3)},
				{Username: "nothing", Tracked: true},
				{Username: "untracked", Tracked: false, LastChanged: daysAgo(1)},
				{Username: "late", Tracked: true, LastChanged: now.Add(-36 * time.Hour)},
			},
			Gains: map[string][]model.GainRecord{
				"gain": {{Username: "gain", Metric: "overall", Delta: 40, Start: daysAgo(2), End: now}},
			},
		}

		obs, err := activity.Observe(r)

		Convey("Then each member gets days and evidence", func() {
			So(err, ShouldBeNil)
			So(len(obs), ShouldEqual, 5)
			got := make(map[string]activity.Observation, len(obs))
			for _, o := range obs {
				got[o.Username] = o
			}
			So(got["gain"].Evidence, ShouldEqual, activity.EvidenceGain)
			So(got["gain"].Days, ShouldEqual, 2)
			So(got["joined"].Evidence, ShouldEqual, activity.EvidenceJoin)
			So(got["joined"].Days, ShouldEqual, 3)
			So(got["nothing"].Evidence, ShouldEqual, activity.EvidenceNone)
			So(got["nothing"].HasDays(), ShouldBeFalse)
			So(got["untracked"].Evidence, ShouldEqual, activity.EvidenceNone)
			So(got["late"].Days, ShouldEqual, 1)
		})

		Convey("When a timestamp is less than a day in the future", func() {
			r.Members = []model.Member{{Username: "skew", Tracked: true, LastChanged: now.Add(20 * time.Hour)}}
			obs, err := activity.Observe(r)

			Convey("Then it reads as zero days", func() {
				So(err, ShouldBeNil)
				So(obs[0].Days, ShouldEqual, 0)
			})
		})

		Convey("When a timestamp is more than a day in the future", func() {
			r.Members = []model.Member{{Username: "future", Tracked: true, LastChanged: now.Add(50 * time.Hour)}}
			_, err := activity.Observe(r)

			Convey("Then observation fails with InvalidInput", func() {
				So(errors.Is(err, activity.ErrInvalidInput), ShouldBeTrue)
			})
		})
	})
}

func TestClassifyObservation(t *testing.T) {
	Convey("Given default thresholds", t, func() {
		th := activity.DefaultThresholds()

		Convey("Then missing evidence is InsufficientData", func() {
			s, err := activity.ClassifyObservation(activity.Observation{Evidence: activity.EvidenceNone, Days: 400}, th)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, model.InsufficientData)
		})

		Convey("Then a join date inside the active window is InsufficientData", func() {
			s, err := activity.ClassifyObservation(activity.Observation{Evidence: activity.EvidenceJoin, Days: 7}, th)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, model.InsufficientData)
		})

		Convey("Then an old join date without gains follows the threshold rule", func() {
			s, err := activity.ClassifyObservation(activity.Observation{Evidence: activity.EvidenceJoin, Days: 45}, th)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, model.Inactive)
		})

		Convey("Then gain evidence follows the threshold rule", func() {
			s, err := activity.ClassifyObservation(activity.Observation{Evidence: activity.EvidenceGain, Days: 8}, th)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, model.AtRisk)
		})
	})
}

func TestEngineRun(t *testing.T) {
	Convey("Given the default engine", t, func() {
		e := mustEngine(t)

		Convey("When members were last active 5, 10, 95 and 0 days ago", func() {
			r := model.Roster{Now: now, Members: []model.Member{
				tracked("A", 100, 5),
				tracked("B", 200, 10),
				tracked("C", 300, 95),
				tracked("D", 400, 0),
			}}

			res, err := e.Run(r)

			Convey("Then they are Active, AtRisk, Churned, Active and only B is ranked", func() {
				So(err, ShouldBeNil)
				states := make([]model.ActivityState, 0, len(res.Members))
				for _, m := range res.Members {
					states = append(states, m.State)
				}
				want := []model.ActivityState{model.Active, model.AtRisk, model.Churned, model.Active}
				So(cmp.Diff(want, states), ShouldBeEmpty)
				So(len(res.Risk), ShouldEqual, 1)
				So(res.Risk[0].Username, ShouldEqual, "B")
				So(res.Risk[0].Tier, ShouldEqual, activity.TierLow)
			})

			Convey("Then the health score uses the default weights", func() {
				So(res.Health, ShouldNotBeNil)
				So(*res.Health, ShouldAlmostEqual, (1.0+0.5+0+1.0)/4*100, 1e-9)
			})
		})

		Convey("When the roster is empty", func() {
			res, err := e.Run(model.Roster{Now: now})

			Convey("Then the score is undefined and the ranking empty", func() {
				So(err, ShouldBeNil)
				So(res.Health, ShouldBeNil)
				So(res.Risk, ShouldNotBeNil)
				So(len(res.Risk), ShouldEqual, 0)
				for _, rr := range res.Insights.Retention {
					So(rr.Percent, ShouldEqual, 0)
				}
			})
		})

		Convey("When an untracked member sits beside an active one", func() {
			r := model.Roster{Now: now, Members: []model.Member{
				tracked("on", 50, 1),
				{Username: "off", Tracked: false},
			}}

			res, err := e.Run(r)

			Convey("Then the untracked member is excluded from the health denominator", func() {
				So(err, ShouldBeNil)
				So(res.Counts[model.InsufficientData], ShouldEqual, 1)
				So(*res.Health, ShouldEqual, 100)
				So(res.Insights.Untracked, ShouldEqual, 1)
				So(res.Insights.Tracked, ShouldEqual, 1)
			})
		})

		Convey("When every member is churned", func() {
			r := model.Roster{Now: now, Members: []model.Member{tracked("x", 1, 200), tracked("y", 1, 365)}}
			res, err := e.Run(r)

			Convey("Then the score is 0", func() {
				So(err, ShouldBeNil)
				So(*res.Health, ShouldEqual, 0)
			})
		})

		Convey("When the input roster is run", func() {
			members := []model.Member{tracked("b", 1, 20), tracked("a", 1, 20)}
			before := append([]model.Member(nil), members...)
			_, err := e.Run(model.Roster{Now: now, Members: members})

			Convey("Then it is not mutated", func() {
				So(err, ShouldBeNil)
				So(cmp.Diff(before, members), ShouldBeEmpty)
			})
		})
	})

	Convey("Given custom thresholds", t, func() {
		th, err := activity.NewThresholds(1, 2, 3)
		So(err, ShouldBeNil)
		e := mustEngine(t, activity.WithThresholds(th))

		Convey("Then classification follows them", func() {
			res, err := e.Run(model.Roster{Now: now, Members: []model.Member{tracked("m", 1, 3)}})
			So(err, ShouldBeNil)
			So(res.Members[0].State, ShouldEqual, model.Inactive)
		})
	})

	Convey("Given a zero-value engine", t, func() {
		e := activity.NewEngine(activity.Config{})

		Convey("Then Run refuses the unordered thresholds", func() {
			_, err := e.Run(model.Roster{Now: now})
			So(errors.Is(err, activity.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestNewConfig(t *testing.T) {
	Convey("Given no options", t, func() {
		Convey("Then the defaults validate", func() {
			So(func() { activity.DefaultConfig() }, ShouldNotPanic)
			cfg := activity.DefaultConfig()
			So(cfg.Thresholds(), ShouldResemble, activity.DefaultThresholds())
			So(cfg.RiskTiers(), ShouldResemble, activity.DefaultRiskTiers())
			So(cmp.Diff(activity.DefaultRetentionPeriods, cfg.RetentionPeriods()), ShouldBeEmpty)
		})
	})

	Convey("Given engine options", t, func() {
		Convey("When retention periods repeat and are unsorted", func() {
			cfg, err := activity.NewConfig(activity.WithRetentionPeriods(30, 7, 30))

			Convey("Then they are deduplicated and sorted", func() {
				So(err, ShouldBeNil)
				So(cmp.Diff([]int{7, 30}, cfg.RetentionPeriods()), ShouldBeEmpty)
			})
		})

		Convey("When a retention period is not positive", func() {
			_, err := activity.NewConfig(activity.WithRetentionPeriods(0))

			Convey("Then the config is rejected", func() {
				So(errors.Is(err, activity.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When weights are supplied", func() {
			w, err := scoring.NewWeights(1, 0.4, 0.2, 0)
			So(err, ShouldBeNil)
			cfg, err := activity.NewConfig(activity.WithWeights(w))

			Convey("Then they are kept", func() {
				So(err, ShouldBeNil)
				So(cfg.Weights().Map()["at_risk"], ShouldEqual, 0.4)
			})
		})

		Convey("When risk tiers are misordered", func() {
			_, err := activity.NewRiskTiers(50, 40)

			Convey("Then construction fails", func() {
				So(errors.Is(err, activity.ErrInvalidInput), ShouldBeTrue)
			})
		})
	})
}

func TestRankRisk(t *testing.T) {
	Convey("Given classified members", t, func() {
		members := []activity.MemberResult{
			{Member: model.Member{Username: "zed", Experience: 500}, State: model.AtRisk, Days: 20, Evidence: activity.EvidenceGain},
			{Member: model.Member{Username: "amy", Experience: 500}, State: model.AtRisk, Days: 20, Evidence: activity.EvidenceGain},
			{Member: model.Member{Username: "low", Experience: 100}, State: model.AtRisk, Days: 20, Evidence: activity.EvidenceGain},
			{Member: model.Member{Username: "old", Experience: 900}, State: model.Inactive, Days: 60, Evidence: activity.EvidenceGain},
			{Member: model.Member{Username: "mid", Experience: 900}, State: model.Inactive, Days: 40, Evidence: activity.EvidenceGain},
			{Member: model.Member{Username: "gone", Experience: 1}, State: model.Churned, Days: 400, Evidence: activity.EvidenceGain},
			{Member: model.Member{Username: "fine", Experience: 1}, State: model.Active, Days: 1, Evidence: activity.EvidenceGain},
		}

		ranked := activity.RankRisk(members, activity.DefaultRiskTiers())

		Convey("Then only AtRisk and Inactive are kept, by days desc, xp asc, name asc", func() {
			names := make([]string, 0, len(ranked))
			for _, r := range ranked {
				names = append(names, r.Username)
			}
			So(cmp.Diff([]string{"old", "mid", "low", "amy", "zed"}, names), ShouldBeEmpty)
		})

		Convey("Then tiers follow the day boundaries", func() {
			So(ranked[0].Tier, ShouldEqual, activity.TierHigh)
			So(ranked[1].Tier, ShouldEqual, activity.TierMedium)
			So(ranked[2].Tier, ShouldEqual, activity.TierLow)
		})

		Convey("Then the input order is untouched", func() {
			So(members[0].Member.Username, ShouldEqual, "zed")
		})
	})
}

func TestInsights(t *testing.T) {
	Convey("Given a roster spread across the histogram", t, func() {
		e := mustEngine(t)
		r := model.Roster{Now: now, Members: []model.Member{
			{Username: "a", Tracked: true, Role: "owner", Experience: 1000, EHP: 10, EHB: 2, LastChanged: daysAgo(3)},
			{Username: "b", Tracked: true, Role: "member", Experience: 3000, EHP: 30, EHB: 4, LastChanged: daysAgo(12)},
			{Username: "c", Tracked: true, Role: "member", Experience: 2000, EHP: 20, EHB: 0, LastChanged: daysAgo(400)},
			{Username: "d", Tracked: false, Role: "member"},
		}}

		res, err := e.Run(r)
		So(err, ShouldBeNil)
		in := res.Insights

		Convey("Then status percentages sum to 100", func() {
			sum := 0.0
			for _, p := range in.Percentages {
				sum += p
			}
			So(sum, ShouldAlmostEqual, 100, 1e-9)
		})

		Convey("Then retention counts the whole roster", func() {
			want := []activity.RetentionRate{
				{Days: 7, Percent: 25},
				{Days: 14, Percent: 50},
				{Days: 30, Percent: 50},
				{Days: 60, Percent: 50},
				{Days: 90, Percent: 50},
			}
			So(cmp.Diff(want, in.Retention), ShouldBeEmpty)
		})

		Convey("Then buckets cover measured members and sum to 100", func() {
			sum, count := 0.0, 0
			for _, b := range in.Buckets {
				sum += b.Percent
				count += b.Count
			}
			So(count, ShouldEqual, 3)
			So(sum, ShouldAlmostEqual, 100, 1e-9)
			So(in.Buckets[0].Count, ShouldEqual, 1)
			So(in.Buckets[1].Count, ShouldEqual, 1)
			So(in.Buckets[len(in.Buckets)-1].Label, ShouldEqual, "1y+")
			So(in.Buckets[len(in.Buckets)-1].Count, ShouldEqual, 1)
		})

		Convey("Then totals and averages cover tracked members", func() {
			So(in.Totals.Experience, ShouldEqual, 6000)
			So(in.Averages.Experience, ShouldEqual, 2000)
			So(in.Averages.EHP, ShouldEqual, 20)
			So(in.Averages.EHB, ShouldEqual, 2)
		})

		Convey("Then roles are counted most common first", func() {
			want := []activity.RoleCount{{Role: "member", Count: 3}, {Role: "owner", Count: 1}}
			So(cmp.Diff(want, in.Roles), ShouldBeEmpty)
		})
	})
}

func TestSummarizeGains(t *testing.T) {
	Convey("Given gain records for one metric", t, func() {
		records := []model.GainRecord{
			{Username: "a", Delta: 100},
			{Username: "b", Delta: 0},
			{Username: "c", Delta: 300},
			{Username: "d", Delta: 100},
		}

		s := activity.SummarizeGains(records)

		Convey("Then positive gainers are ranked and averaged", func() {
			want := []activity.Gainer{{Username: "c", Delta: 300}, {Username: "a", Delta: 100}, {Username: "d", Delta: 100}}
			So(cmp.Diff(want, s.Gainers), ShouldBeEmpty)
			So(s.Total, ShouldEqual, 500)
			So(s.ActiveGainers, ShouldEqual, 3)
			So(s.Records, ShouldEqual, 4)
			So(s.Average, ShouldAlmostEqual, 500.0/3, 1e-9)
		})

		Convey("When there are no records", func() {
			empty := activity.SummarizeGains(nil)

			Convey("Then the summary is zero", func() {
				So(empty.Total, ShouldEqual, 0)
				So(empty.Average, ShouldEqual, 0)
				So(len(empty.Gainers), ShouldEqual, 0)
			})
		})
	})
}
