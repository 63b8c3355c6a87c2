package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/clanpulse/internal/adapters/wom"
	"github.com/okian/clanpulse/internal/domain/model"
	"github.com/okian/clanpulse/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// snapshot is everything fetched for one analysis pass.
type snapshot struct {
	details  wom.GroupDetails
	hiscores []wom.HiscoreEntry
	gains    map[string][]wom.GainedEntry // by metric
	skills   map[string][]wom.HiscoreEntry
}

// fetch pulls the pass inputs concurrently, at most fetchConcurrency calls
// at a time. The first failure cancels the rest.
func (s *Service) fetch(ctx context.Context) (snapshot, error) {
	snap := snapshot{
		gains:  make(map[string][]wom.GainedEntry, len(s.gainMetrics)),
		skills: make(map[string][]wom.HiscoreEntry, len(s.snapshotSkills)),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchConcurrency)

	g.Go(func() error {
		d, err := s.gateway.GroupDetails(gctx, s.groupID)
		if err != nil {
			return fmt.Errorf("group details: %w", err)
		}
		snap.details = d
		return nil
	})
	g.Go(func() error {
		h, err := s.gateway.Hiscores(gctx, s.groupID, "overall")
		if err != nil {
			return fmt.Errorf("hiscores: %w", err)
		}
		snap.hiscores = h
		return nil
	})
	for _, metric := range s.gainMetrics {
		metric := metric
		g.Go(func() error {
			rows, err := s.gateway.Gained(gctx, s.groupID, metric, s.gainPeriod)
			if err != nil {
				return fmt.Errorf("gained %s: %w", metric, err)
			}
			mu.Lock()
			snap.gains[metric] = rows
			mu.Unlock()
			return nil
		})
	}
	for _, skill := range s.snapshotSkills {
		skill := skill
		g.Go(func() error {
			rows, err := s.gateway.Hiscores(gctx, s.groupID, skill)
			if err != nil {
				return fmt.Errorf("hiscores %s: %w", skill, err)
			}
			mu.Lock()
			snap.skills[skill] = rows
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

func key(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// buildRoster maps upstream records onto the domain model. Members come
// from the overall hiscores; memberships contribute role and join date, and
// members missing from the hiscores are kept as untracked.
func buildRoster(ctx context.Context, log logger.Logger, snap snapshot, now func() time.Time) model.Roster {
	memberships := make(map[string]wom.Membership, len(snap.details.Memberships))
	for _, m := range snap.details.Memberships {
		memberships[key(m.Player.Username)] = m
	}

	r := model.Roster{
		Members: make([]model.Member, 0, len(snap.hiscores)),
		Gains:   make(map[string][]model.GainRecord),
		Now:     now().UTC(),
	}
	index := make(map[string]int, len(snap.hiscores))

	for _, h := range snap.hiscores {
		k := key(h.Player.Username)
		if k == "" {
			continue
		}
		if _, dup := index[k]; dup {
			log.Warn(ctx, "duplicate hiscore row ignored", logger.String("username", k))
			continue
		}
		m := memberFromPlayer(h.Player)
		if ms, ok := memberships[k]; ok {
			applyMembership(&m, ms)
		} else if h.Role != "" {
			m.Role = h.Role
		}
		index[k] = len(r.Members)
		r.Members = append(r.Members, m)
	}

	for _, ms := range snap.details.Memberships {
		k := key(ms.Player.Username)
		if _, ok := index[k]; ok || k == "" {
			continue
		}
		m := memberFromPlayer(ms.Player)
		m.Tracked = false
		applyMembership(&m, ms)
		index[k] = len(r.Members)
		r.Members = append(r.Members, m)
	}

	for metric, rows := range snap.gains {
		for _, row := range rows {
			k := key(row.Player.Username)
			if _, ok := index[k]; !ok {
				continue
			}
			r.Gains[k] = append(r.Gains[k], model.GainRecord{
				Username: k,
				Metric:   metric,
				Delta:    row.Data.Gained,
				Start:    row.StartDate.Time,
				End:      row.EndDate.Time,
			})
		}
	}

	for skill, rows := range snap.skills {
		for _, row := range rows {
			i, ok := index[key(row.Player.Username)]
			if !ok {
				continue
			}
			if r.Members[i].Skills == nil {
				r.Members[i].Skills = make(map[string]int64)
			}
			r.Members[i].Skills[skill] = row.Data.Experience
		}
	}
	return r
}

func memberFromPlayer(p wom.Player) model.Member {
	m := model.Member{
		Username:    key(p.Username),
		DisplayName: p.DisplayName,
		Role:        "member",
		EHP:         p.EHP,
		EHB:         p.EHB,
		AccountType: p.Type,
		Build:       p.Build,
		LastChanged: p.LastChangedAt.Time,
		JoinedAt:    p.RegisteredAt.Time,
		Tracked:     !p.Untracked(),
	}
	if p.Exp != nil {
		m.Experience = *p.Exp
	}
	return m
}

func applyMembership(m *model.Member, ms wom.Membership) {
	if ms.Role != "" {
		m.Role = ms.Role
	}
	if !ms.CreatedAt.IsZero() {
		m.JoinedAt = ms.CreatedAt.Time
	}
}
