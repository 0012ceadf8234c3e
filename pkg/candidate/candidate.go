// Package candidate implements the address book of known peers and the
// scoring policy used to pick the next one to dial. Grounded on the
// teacher's pkg/addrmgr.Addrmgr — this keeps the "known/good/bad" bucket
// idea but replaces it with a single scoring function, and drops the
// mutex: a single event-loop thread owns the registry (like the peer
// table), so it needs no synchronization.
package candidate

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"time"

	"github.com/google/uuid"
)

// Status is a candidate's eligibility state.
type Status int

// Candidate statuses.
const (
	Active Status = iota
	Disabled
)

// AddrPenalty is the standard timestamp penalty applied to addresses
// learned from an `addr` message.
const AddrPenalty = 2 * time.Hour

// ErrRegistryEmpty is returned by BestNonPeer when there is nothing to
// select from; the caller (scheduler/connmgr) must defer the dial to the
// next tick.
var ErrRegistryEmpty = errors.New("candidate: registry has no eligible entry")

// Candidate is a known network address that may become a peer.
// Candidates persist once created; they are never deleted, only disabled.
type Candidate struct {
	ID         uuid.UUID
	IP         net.IP
	Port       uint16
	Services   uint64
	LastSeen   time.Time
	Status     Status
	AvgLatency time.Duration // 0 means "unknown"
}

// Key is the candidate's identity in the registry: its dial address.
func (c *Candidate) Key() string {
	return fmt.Sprintf("%s:%d", c.IP.String(), c.Port)
}

// Registry holds every known candidate, keyed by address. It never
// forgets an entry; ingestion of a duplicate address merges into the
// existing one rather than creating a second.
type Registry struct {
	byKey map[string]*Candidate
	order []string // insertion order, for deterministic snapshot/iteration

	// LatencyTolerance is the divisor used by the latency_score term
	//, sourced from config tolerances.latency.
	LatencyTolerance time.Duration

	rng *rand.Rand
}

// NewRegistry builds an empty registry. latencyTolerance is the
// tolerances.latency config value used in scoring.
func NewRegistry(latencyTolerance time.Duration) *Registry {
	return &Registry{
		byKey:            make(map[string]*Candidate),
		LatencyTolerance: latencyTolerance,
		rng:              rand.New(rand.NewSource(rand.Int63())),
	}
}

// Len reports how many candidates are known, active or disabled.
func (r *Registry) Len() int {
	return len(r.byKey)
}

// Upsert inserts a new candidate or merges into an existing one at the
// same address. lastSeen is the already-penalty-adjusted timestamp the
// caller wants recorded; merging takes the max of existing and new.
func (r *Registry) Upsert(ip net.IP, port uint16, services uint64, lastSeen time.Time) *Candidate {
	key := fmt.Sprintf("%s:%d", ip.String(), port)
	if existing, ok := r.byKey[key]; ok {
		if lastSeen.After(existing.LastSeen) {
			existing.LastSeen = lastSeen
		}
		if services != 0 {
			existing.Services = services
		}
		return existing
	}
	c := &Candidate{
		ID:       uuid.New(),
		IP:       ip,
		Port:     port,
		Services: services,
		LastSeen: lastSeen,
		Status:   Active,
	}
	r.byKey[key] = c
	r.order = append(r.order, key)
	return c
}

// InsertFromAddr inserts a candidate learned from an `addr` message,
// applying the standard 2-hour timestamp penalty.
func (r *Registry) InsertFromAddr(ip net.IP, port uint16, services uint64, timestamp time.Time) *Candidate {
	return r.Upsert(ip, port, services, timestamp.Add(-AddrPenalty))
}

// Disable marks a candidate ineligible for future selection.
func (r *Registry) Disable(c *Candidate) {
	c.Status = Disabled
}

// RecordLatency updates a candidate's moving-average latency. Called once
// the peer FSM's latency ring becomes "fully tested".
func (r *Registry) RecordLatency(c *Candidate, sample time.Duration) {
	if c.AvgLatency == 0 {
		c.AvgLatency = sample
		return
	}
	c.AvgLatency = (c.AvgLatency + sample) / 2
}

// score computes the candidate-ranking formula at time now.
func (r *Registry) score(c *Candidate) float64 {
	statusScore := 0.0
	if c.Status == Disabled {
		statusScore = -10
	}

	age := time.Since(c.LastSeen)
	var timestampScore float64
	switch {
	case age > 7*24*time.Hour:
		timestampScore = 0.8
	case age > 24*time.Hour:
		timestampScore = 1.0
	default:
		timestampScore = 0.5
	}

	latencyScore := 1.0
	if c.AvgLatency > 0 && r.LatencyTolerance > 0 {
		latencyScore = float64(r.LatencyTolerance) / float64(c.AvgLatency)
	}

	shuffleScore := r.rng.Float64() * 2

	return statusScore + timestampScore + latencyScore + shuffleScore
}

// Score exposes the scoring formula for callers (status printing,
// diagnostics, tests) that want a candidate's current score without going
// through selection.
func (r *Registry) Score(c *Candidate) float64 {
	return r.score(c)
}

// BestNonPeer returns the highest-scoring candidate not already bound to a
// peer slot (bound keys recognized by Candidate.Key()). Ties are broken by
// the shuffle term baked into score. Returns ErrRegistryEmpty
// if every known candidate is currently bound to a slot or none exist.
func (r *Registry) BestNonPeer(bound map[string]bool) (*Candidate, error) {
	var best *Candidate
	var bestScore float64
	for _, key := range r.order {
		c := r.byKey[key]
		if bound[c.Key()] {
			continue
		}
		s := r.score(c)
		if best == nil || s > bestScore {
			best, bestScore = c, s
		}
	}
	if best == nil {
		return nil, ErrRegistryEmpty
	}
	return best, nil
}

// Snapshot returns every known candidate in insertion order, for the
// address-book persistence collaborator to save.
func (r *Registry) Snapshot() []Candidate {
	out := make([]Candidate, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, *r.byKey[key])
	}
	return out
}

// Load seeds the registry from a previously persisted snapshot.
func (r *Registry) Load(candidates []Candidate) {
	for i := range candidates {
		c := candidates[i]
		r.byKey[c.Key()] = &c
		r.order = append(r.order, c.Key())
	}
}
