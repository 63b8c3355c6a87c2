package wom_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/clanpulse/internal/adapters/wom"
	. "github.com/smartystreets/goconvey/convey"
)

type recorded struct {
	mu      sync.Mutex
	headers []http.Header
	paths   []string
}

func (r *recorded) add(req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.headers = append(r.headers, req.Header.Clone())
	r.paths = append(r.paths, req.URL.RequestURI())
}

func (r *recorded) last() (http.Header, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.headers[len(r.headers)-1], r.paths[len(r.paths)-1]
}

func fakeWOM(rec *recorded) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/groups/7", func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		_, _ = w.Write([]byte(`{"id":7,"name":"Iron Pals","memberCount":2,"memberships":[
			{"playerId":1,"groupId":7,"role":"owner","createdAt":"2025-01-02T03:04:05.000Z","player":{"id":1,"username":"zezima"}},
			{"playerId":2,"groupId":7,"role":"member","createdAt":"","player":{"id":2,"username":"lynx"}}]}`))
	})
	mux.HandleFunc("/groups/7/hiscores", func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		_, _ = w.Write([]byte(`[
			{"player":{"id":1,"username":"zezima","displayName":"Zezima","type":"regular","build":"main","status":"active","exp":1000,"ehp":12.5,"ehb":3,"lastChangedAt":"2026-05-01T10:00:00.000Z"},"data":{"type":"skill","rank":1,"level":2277,"experience":1000}},
			{"player":{"id":2,"username":"lynx","status":"untracked","exp":null,"lastChangedAt":"not a date"},"data":{"type":"skill","rank":2,"level":0,"experience":0}}]`))
	})
	mux.HandleFunc("/groups/7/gained", func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		_, _ = w.Write([]byte(`[{"player":{"id":1,"username":"zezima"},"startDate":"2026-05-13T00:00:00Z","endDate":"2026-05-20T00:00:00Z","data":{"gained":420,"start":580,"end":1000}}]`))
	})
	mux.HandleFunc("/groups/7/achievements", func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		_, _ = w.Write([]byte(`[{"playerId":1,"name":"99 Attack","metric":"attack","threshold":13034431,"createdAt":"2026-05-02T00:00:00Z","player":{"username":"zezima","displayName":"Zezima"}}]`))
	})
	mux.HandleFunc("/groups/7/competitions", func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		_, _ = w.Write([]byte(`[{"id":3,"title":"SOTW","metric":"slayer","type":"classic","startsAt":"2026-05-01T00:00:00Z","endsAt":"2026-05-08T00:00:00Z","participantCount":9}]`))
	})
	mux.HandleFunc("/groups/404", func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Group not found."}`))
	})
	mux.HandleFunc("/groups/429", func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		w.Header().Set("Retry-After", "12")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	mux.HandleFunc("/groups/500", func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})
	return httptest.NewServer(mux)
}

func TestClientRequests(t *testing.T) {
	Convey("Given a fake WOM server", t, func() {
		rec := &recorded{}
		srv := fakeWOM(rec)
		defer srv.Close()
		ctx := context.Background()

		Convey("When no API key is configured", func() {
			c := wom.New(wom.WithBaseURL(srv.URL+"/"), wom.WithUserAgent("test-agent"), wom.WithRateLimit(60000))
			_, err := c.GroupDetails(ctx, 7)

			Convey("Then only the User-Agent is sent and the anonymous budget applies by default", func() {
				So(err, ShouldBeNil)
				h, _ := rec.last()
				So(h.Get("User-Agent"), ShouldEqual, "test-agent")
				So(h.Values("x-api-key"), ShouldBeEmpty)
				So(wom.New().RatePerMinute(), ShouldEqual, wom.AnonymousRateLimit)
			})
		})

		Convey("When an API key is configured", func() {
			c := wom.New(wom.WithBaseURL(srv.URL), wom.WithAPIKey("secret"))
			_, err := c.GroupDetails(ctx, 7)

			Convey("Then x-api-key is sent and the keyed budget applies", func() {
				So(err, ShouldBeNil)
				h, _ := rec.last()
				So(h.Get("x-api-key"), ShouldEqual, "secret")
				So(c.RatePerMinute(), ShouldEqual, wom.KeyedRateLimit)
			})
		})

		Convey("When reading the group endpoints", func() {
			c := wom.New(wom.WithBaseURL(srv.URL), wom.WithRateLimit(60000))

			details, err := c.GroupDetails(ctx, 7)
			So(err, ShouldBeNil)
			hs, err := c.Hiscores(ctx, 7, "overall")
			So(err, ShouldBeNil)
			_, hsPath := rec.last()
			gained, err := c.Gained(ctx, 7, "overall", "week")
			So(err, ShouldBeNil)
			_, gainedPath := rec.last()
			ach, err := c.Achievements(ctx, 7, 10)
			So(err, ShouldBeNil)
			_, achPath := rec.last()
			comps, err := c.Competitions(ctx, 7)
			So(err, ShouldBeNil)

			Convey("Then query parameters are encoded", func() {
				So(hsPath, ShouldEqual, "/groups/7/hiscores?metric=overall")
				So(gainedPath, ShouldEqual, "/groups/7/gained?metric=overall&period=week")
				So(achPath, ShouldEqual, "/groups/7/achievements?limit=10")
			})

			Convey("Then payloads decode with lenient timestamps", func() {
				So(details.Name, ShouldEqual, "Iron Pals")
				So(len(details.Memberships), ShouldEqual, 2)
				So(details.Memberships[0].CreatedAt.Equal(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)), ShouldBeTrue)
				So(details.Memberships[1].CreatedAt.IsZero(), ShouldBeTrue)

				So(len(hs), ShouldEqual, 2)
				So(*hs[0].Player.Exp, ShouldEqual, 1000)
				So(hs[0].Player.Untracked(), ShouldBeFalse)
				So(hs[1].Player.Untracked(), ShouldBeTrue)
				So(hs[1].Player.LastChangedAt.IsZero(), ShouldBeTrue)

				So(gained[0].Data.Gained, ShouldEqual, 420)
				So(ach[0].Name, ShouldEqual, "99 Attack")
				So(comps[0].ParticipantCount, ShouldEqual, 9)
			})
		})

		Convey("When arguments are unknown", func() {
			c := wom.New(wom.WithBaseURL(srv.URL))
			_, err1 := c.Hiscores(ctx, 7, "dancing")
			_, err2 := c.Gained(ctx, 7, "overall", "decade")

			Convey("Then no request is sent", func() {
				So(errors.Is(err1, wom.ErrInvalidArgument), ShouldBeTrue)
				So(errors.Is(err2, wom.ErrInvalidArgument), ShouldBeTrue)
				So(len(rec.paths), ShouldEqual, 0)
			})
		})
	})
}

func TestClientErrors(t *testing.T) {
	Convey("Given a fake WOM server", t, func() {
		srv := fakeWOM(&recorded{})
		defer srv.Close()
		c := wom.New(wom.WithBaseURL(srv.URL), wom.WithRateLimit(60000))
		ctx := context.Background()

		Convey("When the group does not exist", func() {
			_, err := c.GroupDetails(ctx, 404)

			Convey("Then the error is NotFound and carries the message", func() {
				So(errors.Is(err, wom.ErrNotFound), ShouldBeTrue)
				So(errors.Is(err, wom.ErrUpstream), ShouldBeTrue)
				var se *wom.StatusError
				So(errors.As(err, &se), ShouldBeTrue)
				So(se.Message, ShouldEqual, "Group not found.")
			})
		})

		Convey("When the server rate limits", func() {
			_, err := c.GroupDetails(ctx, 429)

			Convey("Then the error is RateLimited with Retry-After", func() {
				So(errors.Is(err, wom.ErrRateLimited), ShouldBeTrue)
				var se *wom.StatusError
				So(errors.As(err, &se), ShouldBeTrue)
				So(se.RetryAfter, ShouldEqual, 12*time.Second)
			})
		})

		Convey("When the server fails", func() {
			_, err := c.GroupDetails(ctx, 500)

			Convey("Then the error is a plain upstream error", func() {
				So(errors.Is(err, wom.ErrUpstream), ShouldBeTrue)
				So(errors.Is(err, wom.ErrNotFound), ShouldBeFalse)
				So(err.Error(), ShouldContainSubstring, "boom")
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := c.GroupDetails(cctx, 7)

			Convey("Then the call fails without hanging", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

func TestClientProbe(t *testing.T) {
	Convey("Given a fake WOM server", t, func() {
		srv := fakeWOM(&recorded{})
		defer srv.Close()
		c := wom.New(wom.WithBaseURL(srv.URL), wom.WithRateLimit(60000))

		Convey("When probing a list endpoint", func() {
			res, err := c.Probe(context.Background(), "/groups/7/hiscores", nil)

			Convey("Then the shape is described", func() {
				So(err, ShouldBeNil)
				So(res.StatusCode, ShouldEqual, http.StatusOK)
				So(res.Items, ShouldEqual, 2)
				So(res.Keys, ShouldResemble, []string{"data", "player"})
			})
		})

		Convey("When probing a missing endpoint", func() {
			res, err := c.Probe(context.Background(), "/groups/7/members", nil)

			Convey("Then the status is reported without an error", func() {
				So(err, ShouldBeNil)
				So(res.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

type countingSource struct {
	details atomic.Int32
	gained  atomic.Int32
}

func (s *countingSource) GroupDetails(context.Context, int) (wom.GroupDetails, error) {
	s.details.Add(1)
	return wom.GroupDetails{ID: 7, Name: "Iron Pals"}, nil
}

func (s *countingSource) Hiscores(context.Context, int, string) ([]wom.HiscoreEntry, error) {
	return []wom.HiscoreEntry{{}}, nil
}

func (s *countingSource) Gained(context.Context, int, string, string) ([]wom.GainedEntry, error) {
	s.gained.Add(1)
	return nil, nil
}

func (s *countingSource) Achievements(context.Context, int, int) ([]wom.Achievement, error) {
	return nil, nil
}

func (s *countingSource) Competitions(context.Context, int) ([]wom.Competition, error) {
	return nil, nil
}

func TestCached(t *testing.T) {
	Convey("Given a cached source", t, func() {
		var mu sync.Mutex
		now := time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)
		clock := func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}
		src := &countingSource{}
		c := wom.NewCached(src, wom.WithGainsTTL(time.Minute), wom.WithDetailsTTL(time.Hour), wom.WithCacheClock(clock))
		ctx := context.Background()

		Convey("When details are read repeatedly", func() {
			for i := 0; i < 3; i++ {
				d, err := c.GroupDetails(ctx, 7)
				So(err, ShouldBeNil)
				So(d.Name, ShouldEqual, "Iron Pals")
			}

			Convey("Then the source is hit once", func() {
				So(src.details.Load(), ShouldEqual, 1)
				So(c.Entries()["details"], ShouldEqual, 1)
			})
		})

		Convey("When gains outlive their TTL", func() {
			_, _ = c.Gained(ctx, 7, "overall", "week")
			mu.Lock()
			now = now.Add(2 * time.Minute)
			mu.Unlock()
			_, _ = c.Gained(ctx, 7, "overall", "week")
			_, _ = c.GroupDetails(ctx, 7)
			_, _ = c.GroupDetails(ctx, 7)

			Convey("Then gains reload while details stay cached", func() {
				So(src.gained.Load(), ShouldEqual, 2)
				So(src.details.Load(), ShouldEqual, 1)
			})
		})

		Convey("When different keys are read", func() {
			_, _ = c.Gained(ctx, 7, "overall", "week")
			_, _ = c.Gained(ctx, 7, "overall", "month")

			Convey("Then each key loads separately", func() {
				So(src.gained.Load(), ShouldEqual, 2)
			})
		})

		Convey("When the cache is invalidated", func() {
			_, _ = c.GroupDetails(ctx, 7)
			_, _ = c.Hiscores(ctx, 7, "overall")
			removed := c.Invalidate()
			_, _ = c.GroupDetails(ctx, 7)

			Convey("Then the next read reloads", func() {
				So(removed, ShouldEqual, 2)
				So(src.details.Load(), ShouldEqual, 2)
			})
		})
	})
}
