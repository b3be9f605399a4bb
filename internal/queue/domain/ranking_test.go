package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func entry(id byte, score int, lastActivity time.Time, active int) RankEntry {
	return RankEntry{
		AgentID:         uuid.UUID{id},
		Score:           score,
		LastActivityAt:  lastActivity,
		ActiveLeadCount: active,
	}
}

func TestRankOrdersByScoreDescending(t *testing.T) {
	now := time.Now()
	entries := []RankEntry{
		entry(1, 10, now, 0),
		entry(2, 30, now, 0),
		entry(3, 20, now, 0),
	}

	ranked := Rank(entries)

	if ranked[0].Score != 30 || ranked[1].Score != 20 || ranked[2].Score != 10 {
		t.Fatalf("unexpected score order: %d, %d, %d", ranked[0].Score, ranked[1].Score, ranked[2].Score)
	}
}

func TestRankTiebreaksOnLeastRecentActivity(t *testing.T) {
	now := time.Now()
	stale := entry(1, 50, now.Add(-2*time.Hour), 0)
	fresh := entry(2, 50, now, 0)

	ranked := Rank([]RankEntry{fresh, stale})

	if ranked[0].AgentID != stale.AgentID {
		t.Fatalf("expected least recently active agent first, got %s", ranked[0].AgentID)
	}
}

func TestRankTiebreaksOnAgentID(t *testing.T) {
	now := time.Now()
	low := entry(1, 50, now, 0)
	high := entry(2, 50, now, 0)

	ranked := Rank([]RankEntry{high, low})

	if ranked[0].AgentID != low.AgentID {
		t.Fatalf("expected lower agent id first, got %s", ranked[0].AgentID)
	}
}

func TestRankDoesNotModifyInput(t *testing.T) {
	now := time.Now()
	entries := []RankEntry{
		entry(1, 10, now, 0),
		entry(2, 30, now, 0),
	}

	Rank(entries)

	if entries[0].Score != 10 {
		t.Fatalf("input slice was reordered: first score %d", entries[0].Score)
	}
}

func TestPositionOfIsOneBased(t *testing.T) {
	now := time.Now()
	entries := []RankEntry{
		entry(1, 10, now, 0),
		entry(2, 30, now, 0),
	}

	pos, ok := PositionOf(entries, uuid.UUID{2})
	if !ok || pos != 1 {
		t.Fatalf("expected position 1, got %d (ok=%v)", pos, ok)
	}
	pos, ok = PositionOf(entries, uuid.UUID{1})
	if !ok || pos != 2 {
		t.Fatalf("expected position 2, got %d (ok=%v)", pos, ok)
	}
}

func TestPositionOfUnknownAgent(t *testing.T) {
	entries := []RankEntry{entry(1, 10, time.Now(), 0)}

	if _, ok := PositionOf(entries, uuid.UUID{9}); ok {
		t.Fatal("expected unknown agent to report not found")
	}
}

func TestNextCandidateSkipsExcluded(t *testing.T) {
	now := time.Now()
	top := entry(1, 50, now, 0)
	second := entry(2, 40, now, 0)
	excluded := map[uuid.UUID]struct{}{top.AgentID: {}}

	got, ok := NextCandidate([]RankEntry{top, second}, excluded, 0)
	if !ok {
		t.Fatal("expected a candidate")
	}
	if got != second.AgentID {
		t.Fatalf("expected second-ranked agent, got %s", got)
	}
}

func TestNextCandidateSkipsAgentsAtCapacity(t *testing.T) {
	now := time.Now()
	full := entry(1, 50, now, 3)
	free := entry(2, 40, now, 2)

	got, ok := NextCandidate([]RankEntry{full, free}, nil, 3)
	if !ok {
		t.Fatal("expected a candidate")
	}
	if got != free.AgentID {
		t.Fatalf("expected agent under capacity, got %s", got)
	}
}

func TestNextCandidateCapacityZeroMeansUnlimited(t *testing.T) {
	busy := entry(1, 50, time.Now(), 100)

	got, ok := NextCandidate([]RankEntry{busy}, nil, 0)
	if !ok || got != busy.AgentID {
		t.Fatalf("expected busy agent with unlimited capacity, got %s (ok=%v)", got, ok)
	}
}

func TestNextCandidateNoneEligible(t *testing.T) {
	now := time.Now()
	entries := []RankEntry{entry(1, 50, now, 0)}
	excluded := map[uuid.UUID]struct{}{{1}: {}}

	if _, ok := NextCandidate(entries, excluded, 0); ok {
		t.Fatal("expected no candidate when everyone is excluded")
	}
}

func TestAgentStatusValid(t *testing.T) {
	if !StatusActive.Valid() || !StatusInactive.Valid() {
		t.Fatal("known statuses must be valid")
	}
	if AgentStatus("SLEEPING").Valid() {
		t.Fatal("unknown status must be invalid")
	}
}
