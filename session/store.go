package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/medquorum/types"
)

// DefaultMaxRounds is the round budget applied when a session is started
// without an explicit one.
const DefaultMaxRounds = 13

// Round is one complete deliberation cycle: expert opinions keyed by expert
// identifier, then at most one coordinator decision. A round is open until
// its decision is recorded.
type Round struct {
	Index    int                      `json:"index"`
	Opinions map[string]types.Opinion `json:"opinions"`
	Decision *types.Decision          `json:"decision,omitempty"`
}

// Open reports whether the round still awaits its decision.
func (r *Round) Open() bool {
	return r != nil && r.Decision == nil
}

// Session is one deliberation process over a single case, bounded by a round
// budget.
type Session struct {
	ID                string            `json:"id"`
	Context           types.CaseContext `json:"context"`
	CurrentRound      int               `json:"current_round"`
	MaxRounds         int               `json:"max_rounds"`
	Rounds            []*Round          `json:"rounds"`
	Terminated        bool              `json:"terminated"`
	TerminationReason string            `json:"termination_reason,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

type managedSession struct {
	mu   sync.Mutex
	sess *Session
}

// Store is the in-memory session registry.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*managedSession
	logger   *zap.Logger
}

// NewStore creates an empty store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		sessions: make(map[string]*managedSession),
		logger:   logger.With(zap.String("component", "session_store")),
	}
}

// Start registers a session. It is idempotent: starting an existing
// identifier returns the current session without resetting its round state.
// An empty identifier gets a generated one.
func (s *Store) Start(sessionID string, caseCtx types.CaseContext, maxRounds int) (*Session, error) {
	if err := caseCtx.Validate(); err != nil {
		return nil, err
	}
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}

	s.mu.Lock()
	ms, ok := s.sessions[sessionID]
	if !ok {
		now := time.Now()
		ms = &managedSession{sess: &Session{
			ID:        sessionID,
			Context:   caseCtx.Clone(),
			MaxRounds: maxRounds,
			CreatedAt: now,
			UpdatedAt: now,
		}}
		s.sessions[sessionID] = ms
		s.logger.Info("session started",
			zap.String("session_id", sessionID),
			zap.Int("max_rounds", maxRounds),
		)
	}
	s.mu.Unlock()

	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.sess.snapshot(), nil
}

// Get returns a copy of the session, or false if it is not registered.
func (s *Store) Get(sessionID string) (*Session, bool) {
	ms, ok := s.lookup(sessionID)
	if !ok {
		return nil, false
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.sess.snapshot(), true
}

// End terminates the session and records the reason. Ending an unknown or
// already-terminated session is a no-op.
func (s *Store) End(sessionID, reason string) {
	ms, ok := s.lookup(sessionID)
	if !ok {
		return
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.sess.Terminated {
		return
	}
	ms.sess.Terminated = true
	ms.sess.TerminationReason = reason
	ms.sess.UpdatedAt = time.Now()
	s.logger.Info("session ended",
		zap.String("session_id", sessionID),
		zap.String("reason", reason),
	)
}

// BeginRound opens the next round and returns its 1-based index. Reaching
// the round budget terminates the session and fails with
// ROUND_LIMIT_REACHED.
func (s *Store) BeginRound(sessionID string) (int, error) {
	ms, ok := s.lookup(sessionID)
	if !ok {
		return 0, notFound(sessionID)
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	sess := ms.sess
	if sess.Terminated {
		return 0, types.NewError(types.ErrSessionTerminated, "session is terminated")
	}
	if sess.CurrentRound >= sess.MaxRounds {
		sess.Terminated = true
		sess.TerminationReason = "round limit reached"
		sess.UpdatedAt = time.Now()
		return 0, types.NewError(types.ErrRoundLimitReached, "maximum round count reached")
	}

	sess.CurrentRound++
	sess.Rounds = append(sess.Rounds, &Round{
		Index:    sess.CurrentRound,
		Opinions: make(map[string]types.Opinion),
	})
	sess.UpdatedAt = time.Now()

	s.logger.Debug("round opened",
		zap.String("session_id", sessionID),
		zap.Int("round", sess.CurrentRound),
	)
	return sess.CurrentRound, nil
}

// RecordOpinion validates and stores one expert's opinion in the current
// open round. At most one opinion per expert per round; a resubmission
// overwrites the previous one.
func (s *Store) RecordOpinion(sessionID, expertID string, opinion types.Opinion) error {
	if err := opinion.Validate(); err != nil {
		return err
	}
	ms, ok := s.lookup(sessionID)
	if !ok {
		return notFound(sessionID)
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	round, err := currentOpenRound(ms.sess)
	if err != nil {
		return err
	}
	opinion.ExpertID = expertID
	opinion.Round = round.Index
	round.Opinions[expertID] = opinion
	ms.sess.UpdatedAt = time.Now()
	return nil
}

// RecordDecision validates and stores the coordinator decision, closing the
// current round.
func (s *Store) RecordDecision(sessionID string, decision types.Decision) error {
	if err := decision.Validate(); err != nil {
		return err
	}
	ms, ok := s.lookup(sessionID)
	if !ok {
		return notFound(sessionID)
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	round, err := currentOpenRound(ms.sess)
	if err != nil {
		return err
	}
	decision.Round = round.Index
	round.Decision = &decision
	ms.sess.UpdatedAt = time.Now()
	return nil
}

// Round returns a copy of the round at the given 1-based index.
func (s *Store) Round(sessionID string, index int) (*Round, error) {
	ms, ok := s.lookup(sessionID)
	if !ok {
		return nil, notFound(sessionID)
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if index < 1 || index > len(ms.sess.Rounds) {
		return nil, types.NewError(types.ErrNoOpenRound, "no such round")
	}
	return ms.sess.Rounds[index-1].snapshot(), nil
}

// FinalDecision returns the decision of the most recent round that has one.
func (s *Store) FinalDecision(sessionID string) (*types.Decision, bool) {
	ms, ok := s.lookup(sessionID)
	if !ok {
		return nil, false
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for i := len(ms.sess.Rounds) - 1; i >= 0; i-- {
		if d := ms.sess.Rounds[i].Decision; d != nil {
			out := *d
			out.Hypotheses = types.CapList(append([]string(nil), d.Hypotheses...))
			out.Tests = types.CapList(append([]string(nil), d.Tests...))
			return &out, true
		}
	}
	return nil, false
}

func (s *Store) lookup(sessionID string) (*managedSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ms, ok := s.sessions[sessionID]
	return ms, ok
}

func currentOpenRound(sess *Session) (*Round, error) {
	if sess.Terminated {
		return nil, types.NewError(types.ErrSessionTerminated, "session is terminated")
	}
	if len(sess.Rounds) == 0 {
		return nil, types.NewError(types.ErrNoOpenRound, "no round has been opened")
	}
	round := sess.Rounds[len(sess.Rounds)-1]
	if !round.Open() {
		return nil, types.NewError(types.ErrNoOpenRound, "current round already has a decision")
	}
	return round, nil
}

func notFound(sessionID string) error {
	return types.NewError(types.ErrSessionNotFound, "session not found: "+sessionID)
}

func (sess *Session) snapshot() *Session {
	out := *sess
	out.Context = sess.Context.Clone()
	out.Rounds = make([]*Round, len(sess.Rounds))
	for i, r := range sess.Rounds {
		out.Rounds[i] = r.snapshot()
	}
	return &out
}

func (r *Round) snapshot() *Round {
	out := &Round{Index: r.Index, Opinions: make(map[string]types.Opinion, len(r.Opinions))}
	for id, op := range r.Opinions {
		cp := op
		cp.Hypotheses = append([]string(nil), op.Hypotheses...)
		cp.Tests = append([]string(nil), op.Tests...)
		out.Opinions[id] = cp
	}
	if r.Decision != nil {
		d := *r.Decision
		d.Hypotheses = append([]string(nil), r.Decision.Hypotheses...)
		d.Tests = append([]string(nil), r.Decision.Tests...)
		out.Decision = &d
	}
	return out
}
