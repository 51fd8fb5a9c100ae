// internal/lineage/tracker.go
//
// The tracker is purely observational bookkeeping: profiles are meant to be
// immutable after resolution and copy-derived rather than mutated, so any
// shared ownership across two independently progressing sessions is by
// definition a hazard. The tracker surfaces those hazards as structured
// events; it never prevents them and never owns the profiles it tracks.
package lineage

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jennylv001/s1/api/schemas"
)

// CreationSite records where a profile instance was constructed. Callers
// pass it explicitly; the tracker never inspects call stacks.
type CreationSite struct {
	Location  string `json:"location"`  // e.g. "session/manager.go:142"
	Operation string `json:"operation"` // e.g. "BrowserSession.applyOverrides"
}

// snapshot captures the stealth-relevant fields of a profile at
// registration time. Comparing snapshots instead of holding the profile
// keeps the tracker from extending profile lifetimes.
type snapshot struct {
	Level        schemas.StealthLevel
	Engine       schemas.EngineChoice
	Channel      schemas.BrowserChannel
	Headless     bool
	FlagSet      string // sorted, joined launch flags
	ScriptParams schemas.ScriptEvasionParams
}

func snapshotOf(p *schemas.ResolvedStealthProfile) snapshot {
	flags := append([]string(nil), p.LaunchFlags...)
	sort.Strings(flags)
	return snapshot{
		Level:        p.Level,
		Engine:       p.Engine,
		Channel:      p.RequiredChannel,
		Headless:     p.Headless,
		FlagSet:      strings.Join(flags, "\x00"),
		ScriptParams: p.ScriptParams,
	}
}

// diff lists the stealth-relevant fields on which two snapshots disagree.
func (s snapshot) diff(other snapshot) []string {
	var fields []string
	if s.Level != other.Level {
		fields = append(fields, "level")
	}
	if s.Engine != other.Engine {
		fields = append(fields, "engine")
	}
	if s.Channel != other.Channel {
		fields = append(fields, "required_channel")
	}
	if s.Headless != other.Headless {
		fields = append(fields, "headless")
	}
	if s.FlagSet != other.FlagSet {
		fields = append(fields, "launch_flags")
	}
	if !reflect.DeepEqual(s.ScriptParams, other.ScriptParams) {
		fields = append(fields, "script_params")
	}
	return fields
}

// Node is one entry in the lineage graph. ParentID is set iff the node was
// produced by copying another profile.
type Node struct {
	ID        string       `json:"id"`
	ProfileID string       `json:"profileId"`
	ParentID  string       `json:"parentId,omitempty"`
	Children  []string     `json:"children,omitempty"`
	Site      CreationSite `json:"site"`
	CreatedAt time.Time    `json:"createdAt"`

	inUseBy string
	snap    snapshot
}

// Tracker is the process-wide lineage registry. All mutating operations are
// serialized by a single mutex; each critical section is O(1) bookkeeping
// and never covers profile resolution or mimicry synthesis.
type Tracker struct {
	mu     sync.Mutex
	nodes  map[string]*Node
	events []schemas.Event
	logger *zap.Logger
	now    func() time.Time
}

// NewTracker creates an explicitly owned tracker. Passing a nil logger is
// allowed; events are then recorded silently.
func NewTracker(logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		nodes:  make(map[string]*Node),
		logger: logger,
		now:    time.Now,
	}
}

var (
	defaultTracker *Tracker
	defaultOnce    sync.Once
)

// Default returns the shared convenience tracker used at the top-level
// boundary. Components that create sessions should prefer an explicitly
// injected tracker.
func Default() *Tracker {
	defaultOnce.Do(func() {
		defaultTracker = NewTracker(zap.L())
	})
	return defaultTracker
}

// RegisterRoot records a freshly resolved profile as a lineage root and
// returns the new node's ID.
func (t *Tracker) RegisterRoot(p *schemas.ResolvedStealthProfile, site CreationSite) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	node := &Node{
		ID:        uuid.NewString(),
		ProfileID: p.ID,
		Site:      site,
		CreatedAt: t.now(),
		snap:      snapshotOf(p),
	}
	t.nodes[node.ID] = node
	return node.ID
}

// RegisterCopy records a derivation edge from parent to child. If the
// parent is marked in concurrent use and the child's stealth-relevant
// configuration diverges from it, a ConfigDriftWarning is recorded; the
// registration itself always succeeds for a known parent.
func (t *Tracker) RegisterCopy(parentNodeID string, child *schemas.ResolvedStealthProfile, site CreationSite) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	parent, ok := t.nodes[parentNodeID]
	if !ok {
		return "", fmt.Errorf("lineage: unknown parent node %q", parentNodeID)
	}

	node := &Node{
		ID:        uuid.NewString(),
		ProfileID: child.ID,
		ParentID:  parent.ID,
		Site:      site,
		CreatedAt: t.now(),
		snap:      snapshotOf(child),
	}
	t.nodes[node.ID] = node
	parent.Children = append(parent.Children, node.ID)

	if parent.inUseBy != "" {
		if fields := parent.snap.diff(node.snap); len(fields) > 0 {
			ev := schemas.ConfigDriftWarning{
				ParentNodeID: parent.ID,
				ChildNodeID:  node.ID,
				Fields:       fields,
				Observed:     t.now(),
			}
			t.events = append(t.events, ev)
			t.logger.Warn("Lineage: config drift from in-use ancestor",
				zap.String("parent_node", parent.ID),
				zap.String("child_node", node.ID),
				zap.Strings("fields", fields))
		}
	}
	return node.ID, nil
}

// MarkInUse claims a node for an owner. Claiming a node already held by a
// different owner records and returns a ConcurrentSharingHazard instead of
// failing; this is a diagnostic system, not an enforcement lock. The later
// claimant becomes the holder of record so a subsequent release by it is
// tracked correctly.
func (t *Tracker) MarkInUse(nodeID, ownerToken string) (*schemas.ConcurrentSharingHazard, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	node, ok := t.nodes[nodeID]
	if !ok {
		return nil, fmt.Errorf("lineage: unknown node %q", nodeID)
	}

	var hazard *schemas.ConcurrentSharingHazard
	if node.inUseBy != "" && node.inUseBy != ownerToken {
		ev := schemas.ConcurrentSharingHazard{
			NodeID:        node.ID,
			HolderToken:   node.inUseBy,
			ClaimantToken: ownerToken,
			Observed:      t.now(),
		}
		t.events = append(t.events, ev)
		t.logger.Warn("Lineage: concurrent sharing hazard",
			zap.String("node", node.ID),
			zap.String("holder", node.inUseBy),
			zap.String("claimant", ownerToken))
		hazard = &ev
	}
	node.inUseBy = ownerToken
	return hazard, nil
}

// MarkReleased releases a node held by the given owner. Releasing a node
// the owner does not hold is a no-op; stale releases from a displaced
// holder must not clear the current claim.
func (t *Tracker) MarkReleased(nodeID, ownerToken string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	node, ok := t.nodes[nodeID]
	if !ok {
		return fmt.Errorf("lineage: unknown node %q", nodeID)
	}
	if node.inUseBy == ownerToken {
		node.inUseBy = ""
	}
	return nil
}

// LineageOf returns the ancestor chain of a node, root first, excluding the
// node itself. A root node yields an empty chain.
func (t *Tracker) LineageOf(nodeID string) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	node, ok := t.nodes[nodeID]
	if !ok {
		return nil, fmt.Errorf("lineage: unknown node %q", nodeID)
	}

	var chain []string
	for node.ParentID != "" {
		parent, ok := t.nodes[node.ParentID]
		if !ok {
			break
		}
		chain = append(chain, parent.ID)
		node = parent
	}
	// Reverse to root-first order.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Node returns a copy of the node's public fields.
func (t *Tracker) Node(nodeID string) (Node, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	node, ok := t.nodes[nodeID]
	if !ok {
		return Node{}, fmt.Errorf("lineage: unknown node %q", nodeID)
	}
	out := *node
	out.Children = append([]string(nil), node.Children...)
	return out, nil
}

// NodeForProfile returns the most recently registered node for a profile ID.
// Registration order is not tracked per profile; in practice a profile is
// registered exactly once.
func (t *Tracker) NodeForProfile(profileID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var best *Node
	for _, node := range t.nodes {
		if node.ProfileID != profileID {
			continue
		}
		if best == nil || node.CreatedAt.After(best.CreatedAt) {
			best = node
		}
	}
	if best == nil {
		return "", false
	}
	return best.ID, true
}

// Record appends an externally produced diagnostic event (e.g. a launch
// mismatch) to the tracker's event log.
func (t *Tracker) Record(ev schemas.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, ev)
}

// Events returns a snapshot of all recorded diagnostic events, in order.
func (t *Tracker) Events() []schemas.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]schemas.Event(nil), t.events...)
}

// Reset drops every node and event. Intended for explicit resets between
// test runs; nodes otherwise live for the duration of the process.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nodes = make(map[string]*Node)
	t.events = nil
}
