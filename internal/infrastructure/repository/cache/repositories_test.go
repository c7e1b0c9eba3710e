package cache

import (
	"context"
	"testing"
	"time"

	"github.com/wcfantasy/backend/internal/domain/player"
	"github.com/wcfantasy/backend/internal/domain/team"
	basecache "github.com/wcfantasy/backend/internal/platform/cache"
)

type trackingTeamRepo struct {
	teams     map[string]team.Team
	listCalls int
	getCalls  int
}

var _ team.Repository = (*trackingTeamRepo)(nil)

func newTrackingTeamRepo() *trackingTeamRepo {
	return &trackingTeamRepo{teams: make(map[string]team.Team)}
}

func (r *trackingTeamRepo) List(_ context.Context) ([]team.Team, error) {
	r.listCalls++
	out := make([]team.Team, 0, len(r.teams))
	for _, item := range r.teams {
		out = append(out, item)
	}
	return out, nil
}

func (r *trackingTeamRepo) GetByID(_ context.Context, teamID string) (team.Team, bool, error) {
	r.getCalls++
	item, ok := r.teams[teamID]
	return item, ok, nil
}

func (r *trackingTeamRepo) GetByExternalRef(_ context.Context, externalRef string) (team.Team, bool, error) {
	r.getCalls++
	for _, item := range r.teams {
		if item.ExternalRef == externalRef {
			return item, true, nil
		}
	}
	return team.Team{}, false, nil
}

func (r *trackingTeamRepo) Upsert(_ context.Context, item team.Team) error {
	r.teams[item.ID] = item
	return nil
}

func (r *trackingTeamRepo) UpdateGroup(_ context.Context, teamID, groupName string) error {
	item := r.teams[teamID]
	item.GroupName = groupName
	r.teams[teamID] = item
	return nil
}

func TestTeamRepository_ListCachesUntilUpsert(t *testing.T) {
	t.Parallel()

	next := newTrackingTeamRepo()
	if err := next.Upsert(context.Background(), team.Team{ID: "t-1", Name: "Brazil"}); err != nil {
		t.Fatalf("seed team: %v", err)
	}
	repo := NewTeamRepository(next, basecache.NewStore(time.Minute))

	for i := 0; i < 3; i++ {
		items, err := repo.List(context.Background())
		if err != nil {
			t.Fatalf("list teams: %v", err)
		}
		if len(items) != 1 {
			t.Fatalf("expected 1 team, got=%d", len(items))
		}
	}
	if next.listCalls != 1 {
		t.Fatalf("expected one backing list call, got %d", next.listCalls)
	}

	if err := repo.Upsert(context.Background(), team.Team{ID: "t-2", Name: "Germany"}); err != nil {
		t.Fatalf("upsert team: %v", err)
	}

	items, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("list teams after upsert: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 teams after upsert, got=%d", len(items))
	}
	if next.listCalls != 2 {
		t.Fatalf("expected upsert to invalidate the list entry, got %d backing calls", next.listCalls)
	}
}

func TestTeamRepository_GetByIDCachesMisses(t *testing.T) {
	t.Parallel()

	next := newTrackingTeamRepo()
	repo := NewTeamRepository(next, basecache.NewStore(time.Minute))

	for i := 0; i < 2; i++ {
		_, exists, err := repo.GetByID(context.Background(), "absent")
		if err != nil {
			t.Fatalf("get team: %v", err)
		}
		if exists {
			t.Fatalf("expected miss for unknown team")
		}
	}
	if next.getCalls != 1 {
		t.Fatalf("expected one backing get call, got %d", next.getCalls)
	}
}

func TestTeamRepository_UpdateGroupInvalidates(t *testing.T) {
	t.Parallel()

	next := newTrackingTeamRepo()
	if err := next.Upsert(context.Background(), team.Team{ID: "t-1", Name: "Brazil"}); err != nil {
		t.Fatalf("seed team: %v", err)
	}
	repo := NewTeamRepository(next, basecache.NewStore(time.Minute))

	item, exists, err := repo.GetByID(context.Background(), "t-1")
	if err != nil || !exists {
		t.Fatalf("get team: exists=%v err=%v", exists, err)
	}
	if item.GroupName != "" {
		t.Fatalf("expected no group before the draw, got %q", item.GroupName)
	}

	if err := repo.UpdateGroup(context.Background(), "t-1", "A"); err != nil {
		t.Fatalf("update group: %v", err)
	}

	item, _, err = repo.GetByID(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("get team after update: %v", err)
	}
	if item.GroupName != "A" {
		t.Fatalf("expected group A after invalidation, got %q", item.GroupName)
	}
}

type trackingPlayerRepo struct {
	players      map[string]player.Player
	listByTeam   int
	getByIDs     int
	getByExtRefs int
}

var _ player.Repository = (*trackingPlayerRepo)(nil)

func newTrackingPlayerRepo() *trackingPlayerRepo {
	return &trackingPlayerRepo{players: make(map[string]player.Player)}
}

func (r *trackingPlayerRepo) List(_ context.Context) ([]player.Player, error) {
	out := make([]player.Player, 0, len(r.players))
	for _, item := range r.players {
		out = append(out, item)
	}
	return out, nil
}

func (r *trackingPlayerRepo) ListByTeam(_ context.Context, teamID string) ([]player.Player, error) {
	r.listByTeam++
	var out []player.Player
	for _, item := range r.players {
		if item.TeamID == teamID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *trackingPlayerRepo) GetByID(_ context.Context, playerID string) (player.Player, bool, error) {
	item, ok := r.players[playerID]
	return item, ok, nil
}

func (r *trackingPlayerRepo) GetByIDs(_ context.Context, playerIDs []string) ([]player.Player, error) {
	r.getByIDs++
	var out []player.Player
	for _, id := range playerIDs {
		if item, ok := r.players[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *trackingPlayerRepo) GetByExternalRef(_ context.Context, externalRef string) (player.Player, bool, error) {
	r.getByExtRefs++
	for _, item := range r.players {
		if item.ExternalRef == externalRef {
			return item, true, nil
		}
	}
	return player.Player{}, false, nil
}

func (r *trackingPlayerRepo) Upsert(_ context.Context, item player.Player) error {
	r.players[item.ID] = item
	return nil
}

func TestPlayerRepository_ListByTeamInvalidatedByUpsert(t *testing.T) {
	t.Parallel()

	next := newTrackingPlayerRepo()
	seed := player.Player{ID: "p-1", TeamID: "t-1", Name: "Alisson", Position: player.PositionGoalkeeper, Price: 45, Active: true}
	if err := next.Upsert(context.Background(), seed); err != nil {
		t.Fatalf("seed player: %v", err)
	}
	repo := NewPlayerRepository(next, basecache.NewStore(time.Minute))

	for i := 0; i < 2; i++ {
		items, err := repo.ListByTeam(context.Background(), "t-1")
		if err != nil {
			t.Fatalf("list players: %v", err)
		}
		if len(items) != 1 {
			t.Fatalf("expected 1 player, got=%d", len(items))
		}
	}
	if next.listByTeam != 1 {
		t.Fatalf("expected one backing list call, got %d", next.listByTeam)
	}

	striker := player.Player{ID: "p-2", TeamID: "t-1", Name: "Neymar", Position: player.PositionForward, Price: 60, Active: true}
	if err := repo.Upsert(context.Background(), striker); err != nil {
		t.Fatalf("upsert player: %v", err)
	}

	items, err := repo.ListByTeam(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("list players after upsert: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 players after upsert, got=%d", len(items))
	}
}

func TestPlayerRepository_GetByIDsBypassesCache(t *testing.T) {
	t.Parallel()

	next := newTrackingPlayerRepo()
	seed := player.Player{ID: "p-1", TeamID: "t-1", Name: "Alisson", Position: player.PositionGoalkeeper, Price: 45, Active: true}
	if err := next.Upsert(context.Background(), seed); err != nil {
		t.Fatalf("seed player: %v", err)
	}
	repo := NewPlayerRepository(next, basecache.NewStore(time.Minute))

	for i := 0; i < 2; i++ {
		items, err := repo.GetByIDs(context.Background(), []string{"p-1"})
		if err != nil {
			t.Fatalf("get players: %v", err)
		}
		if len(items) != 1 {
			t.Fatalf("expected 1 player, got=%d", len(items))
		}
	}
	if next.getByIDs != 2 {
		t.Fatalf("batch reads must hit the backing repo every time, got %d calls", next.getByIDs)
	}
}

func TestPlayerRepository_GetByExternalRefCachesAndInvalidates(t *testing.T) {
	t.Parallel()

	next := newTrackingPlayerRepo()
	seed := player.Player{ID: "p-1", ExternalRef: "feed-276", TeamID: "t-1", Name: "Neymar", Position: player.PositionForward, Price: 60, Active: true}
	if err := next.Upsert(context.Background(), seed); err != nil {
		t.Fatalf("seed player: %v", err)
	}
	repo := NewPlayerRepository(next, basecache.NewStore(time.Minute))

	for i := 0; i < 2; i++ {
		item, exists, err := repo.GetByExternalRef(context.Background(), "feed-276")
		if err != nil || !exists {
			t.Fatalf("get player: exists=%v err=%v", exists, err)
		}
		if item.Price != 60 {
			t.Fatalf("unexpected price: %d", item.Price)
		}
	}
	if next.getByExtRefs != 1 {
		t.Fatalf("expected one backing ref lookup, got %d", next.getByExtRefs)
	}

	seed.Price = 65
	if err := repo.Upsert(context.Background(), seed); err != nil {
		t.Fatalf("upsert player: %v", err)
	}

	item, _, err := repo.GetByExternalRef(context.Background(), "feed-276")
	if err != nil {
		t.Fatalf("get player after upsert: %v", err)
	}
	if item.Price != 65 {
		t.Fatalf("expected repriced player after invalidation, got %d", item.Price)
	}
}
