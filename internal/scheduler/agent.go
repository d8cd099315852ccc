package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"AuctionBot/internal/admin"
	"AuctionBot/internal/buyer"
	"AuctionBot/internal/model"
	"AuctionBot/internal/notifier"
	"AuctionBot/internal/recorder"
	"AuctionBot/internal/seller"
	"AuctionBot/internal/state"
	"AuctionBot/internal/store"
)

// SellRunner runs one sell cycle.
type SellRunner interface {
	RunCycle(ctx context.Context, cfg *model.MarketConfig, snapshot []model.Listing) seller.SellReport
}

// BuyRunner runs one buy cycle.
type BuyRunner interface {
	RunCycle(ctx context.Context, cfg *model.MarketConfig, candidates []model.Listing, self model.Identity) buyer.BuyReport
}

var _ admin.Target = (*Agent)(nil)

// Agent drives every configured segment. Ticks and admin updates are
// serialized by one mutex, so a cycle always sees a consistent config.
type Agent struct {
	mu       sync.Mutex
	market   store.MarketStore
	configs  store.ConfigStore
	seller   SellRunner
	buyer    BuyRunner
	self     model.Identity
	recorder recorder.Recorder
	state    *state.Manager
	segments []*Segment

	// TwoSideInteraction restricts ticks to neutral segments, as faction
	// markets are then merged into the neutral one.
	TwoSideInteraction bool
}

// AgentDeps groups the collaborators of an Agent.
type AgentDeps struct {
	Market   store.MarketStore
	Configs  store.ConfigStore // optional
	Seller   SellRunner
	Buyer    BuyRunner
	Self     model.Identity
	Recorder recorder.Recorder // optional
	State    *state.Manager    // optional
}

func NewAgent(d AgentDeps) *Agent {
	rec := d.Recorder
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	st := d.State
	if st == nil {
		st, _ = state.NewManager("")
	}
	return &Agent{
		market:   d.Market,
		configs:  d.Configs,
		seller:   d.Seller,
		buyer:    d.Buyer,
		self:     d.Self,
		recorder: rec,
		state:    st,
	}
}

// AddSegment starts managing cfg, restoring its last bid run from state.
func (a *Agent) AddSegment(cfg *model.MarketConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range a.segments {
		if s.Config.Segment == cfg.Segment {
			return fmt.Errorf("segment %s already added", cfg.Segment)
		}
	}
	a.segments = append(a.segments, &Segment{
		Config:     cfg,
		LastBidRun: a.state.LastBidRun(cfg.Segment),
	})
	return nil
}

func (a *Agent) active(s *Segment) bool {
	return !a.TwoSideInteraction || s.Config.Neutral
}

// Tick runs one cycle on every active segment: sell always, buy when the
// bidding interval has elapsed.
func (a *Agent) Tick(ctx context.Context, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range a.segments {
		if ctx.Err() != nil {
			return
		}
		if !a.active(s) {
			continue
		}
		a.tickSegment(ctx, s, now)
	}
}

func (a *Agent) tickSegment(ctx context.Context, s *Segment, now time.Time) {
	cfg := s.Config
	runID := uuid.NewString()
	s.LastTick = now

	if n, err := a.market.SweepExpired(ctx, cfg.Segment, now); err != nil {
		log.Printf("[WARN] %s: settle expired listings: %v", cfg.Segment, err)
	} else if n > 0 && cfg.DebugSeller {
		log.Printf("[INFO] %s: settled %d expired listings", cfg.Segment, n)
	}

	snapshot, err := a.market.ListingsFor(ctx, cfg.Segment)
	if err != nil {
		log.Printf("[WARN] %s: read listings: %v; skipping sell cycle", cfg.Segment, err)
	} else {
		rep := a.seller.RunCycle(ctx, cfg, snapshot)
		rep.RunID = runID
		s.LastSell = rep
		if err := a.recorder.RecordSell(&rep); err != nil {
			log.Printf("[ERROR] record sell cycle: %v", err)
		}
	}

	if !s.ShouldBid(now) {
		return
	}
	candidates, err := a.market.BidCandidates(ctx, cfg.Segment, a.self.ID)
	if err != nil {
		log.Printf("[WARN] %s: read bid candidates: %v; skipping buy cycle", cfg.Segment, err)
	} else {
		rep := a.buyer.RunCycle(ctx, cfg, candidates, a.self)
		rep.RunID = runID
		s.LastBuy = rep
		if err := a.recorder.RecordBuy(&rep); err != nil {
			log.Printf("[ERROR] record buy cycle: %v", err)
		}
	}
	s.LastBidRun = now
	a.state.SetLastBidRun(cfg.Segment, now)
}

func (a *Agent) find(segment string) (*Segment, error) {
	for _, s := range a.segments {
		if s.Config.Segment == segment {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", admin.ErrUnknownSegment, segment)
}

// Segments returns the managed segment names in order.
func (a *Agent) Segments() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.segments))
	for i, s := range a.segments {
		out[i] = s.Config.Segment
	}
	return out
}

func (a *Agent) prepare(s *Segment, fn func(*model.MarketConfig) error) (*model.MarketConfig, error) {
	next := s.Config.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	return next, nil
}

func (a *Agent) persist(ctx context.Context, cfg *model.MarketConfig) error {
	if a.configs == nil {
		return nil
	}
	if err := a.configs.SaveSegment(ctx, cfg); err != nil {
		return fmt.Errorf("persist segment %s: %w", cfg.Segment, err)
	}
	return nil
}

// Update changes one segment's configuration. See admin.Target.
func (a *Agent) Update(ctx context.Context, segment string, fn func(*model.MarketConfig) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, err := a.find(segment)
	if err != nil {
		return err
	}
	next, err := a.prepare(s, fn)
	if err != nil {
		return err
	}
	if err := a.persist(ctx, next); err != nil {
		return err
	}
	s.Config = next
	return nil
}

// UpdateAll applies fn to every segment. Nothing changes unless every
// segment validates.
func (a *Agent) UpdateAll(ctx context.Context, fn func(*model.MarketConfig) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	next := make([]*model.MarketConfig, len(a.segments))
	for i, s := range a.segments {
		c, err := a.prepare(s, fn)
		if err != nil {
			return err
		}
		next[i] = c
	}
	for i := range a.segments {
		if err := a.persist(ctx, next[i]); err != nil {
			a.rollback(ctx, a.segments[:i])
			return err
		}
	}
	for i, s := range a.segments {
		s.Config = next[i]
	}
	return nil
}

// rollback re-saves the live configuration of segs after a partial save.
func (a *Agent) rollback(ctx context.Context, segs []*Segment) {
	for _, s := range segs {
		if err := a.persist(ctx, s.Config); err != nil {
			log.Printf("[ERROR] roll back %s: %v", s.Config.Segment, err)
		}
	}
}

// ExpireOwned expires every listing the agent owns in segment.
func (a *Agent) ExpireOwned(ctx context.Context, segment string) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.find(segment); err != nil {
		return 0, err
	}
	now := time.Now()
	n, err := a.market.ExpireOwned(ctx, segment, a.self.ID, now)
	if err != nil {
		return 0, err
	}
	if _, err := a.market.SweepExpired(ctx, segment, now); err != nil {
		return n, fmt.Errorf("settle expired listings: %w", err)
	}
	return n, nil
}

// Status returns a copy of every segment's state.
func (a *Agent) Status() []notifier.SegmentStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]notifier.SegmentStatus, len(a.segments))
	for i, s := range a.segments {
		out[i] = notifier.SegmentStatus{
			Config:     *s.Config,
			Active:     a.active(s),
			LastTick:   s.LastTick,
			LastBidRun: s.LastBidRun,
			LastSell:   s.LastSell,
			LastBuy:    s.LastBuy,
		}
	}
	return out
}
