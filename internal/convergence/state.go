// Package convergence tracks how far the monitor trusts its own base fee
// reconstruction for one chain.
//
// While UNCERTAIN the base fee of a finished block is approximated by the
// cheapest gas price observed in it. Each block whose cheapest gas price equals
// the EIP-1559 prediction extends a win streak; once the streak reaches the
// configured limit the state becomes CONFIDENT and base fees are computed with
// the formula alone. A discontinuity in the block stream drops back to
// UNCERTAIN.
package convergence

import "fmt"

// DefaultWinStreakLimit is the number of consecutive confirmations required to
// trust the formula.
const DefaultWinStreakLimit = 20

type Mode int

const (
	ModeUncertain Mode = iota
	ModeConfident
)

func (m Mode) String() string {
	switch m {
	case ModeUncertain:
		return "UNCERTAIN"
	case ModeConfident:
		return "CONFIDENT"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// State is not safe for concurrent use. The owning coordinator serialises
// every call.
type State struct {
	mode           Mode
	winStreak      int
	winStreakLimit int

	candidate    int64
	hasCandidate bool

	currentHeight int64
	started       bool
}

// New returns an UNCERTAIN state. A non-positive limit falls back to
// DefaultWinStreakLimit.
func New(winStreakLimit int) *State {
	if winStreakLimit <= 0 {
		winStreakLimit = DefaultWinStreakLimit
	}
	return &State{mode: ModeUncertain, winStreakLimit: winStreakLimit}
}

func (s *State) Mode() Mode { return s.mode }

func (s *State) Confident() bool { return s.mode == ModeConfident }

func (s *State) WinStreak() int { return s.winStreak }

// CurrentHeight returns the height of the block currently being built and
// whether any block has been seen yet.
func (s *State) CurrentHeight() (int64, bool) { return s.currentHeight, s.started }

// Candidate returns the cheapest gas price observed in the current block.
// ok is false while no price has been observed, which stands for +inf.
func (s *State) Candidate() (price int64, ok bool) { return s.candidate, s.hasCandidate }

// BeginBlock moves the state to a new block and clears the candidate.
func (s *State) BeginBlock(height int64) {
	s.currentHeight = height
	s.started = true
	s.candidate = 0
	s.hasCandidate = false
}

// ObserveGasPrice lowers the candidate when an UNCERTAIN state sees a cheaper
// transaction in the current block. It reports whether the candidate changed.
func (s *State) ObserveGasPrice(height, gasPrice int64) bool {
	if s.mode != ModeUncertain || !s.started || height != s.currentHeight {
		return false
	}
	if s.hasCandidate && gasPrice >= s.candidate {
		return false
	}
	s.candidate = gasPrice
	s.hasCandidate = true
	return true
}

// Resolution is the outcome of finalising a block's base fee.
type Resolution struct {
	// BaseFee is the value to store for the finalised block. It is only
	// meaningful when Resolved is true.
	BaseFee  int64
	Resolved bool
	// Promoted is set on the single call that moved the state to CONFIDENT.
	Promoted  bool
	WinStreak int
}

// Confirm compares the candidate with predicted, the formula's base fee for the
// block being finalised. An equal candidate extends the win streak and a
// cheaper one resets it. Reaching the limit promotes the state to CONFIDENT.
//
// A block without observed transactions takes the prediction as its candidate.
// The stored value is the prediction while the streak is alive, otherwise the
// candidate.
func (s *State) Confirm(predicted int64) Resolution {
	switch {
	case s.hasCandidate && s.candidate == predicted:
		s.winStreak++
	case s.hasCandidate && s.candidate < predicted:
		s.winStreak = 0
	}

	var res Resolution
	if s.mode == ModeUncertain && s.winStreak >= s.winStreakLimit {
		s.mode = ModeConfident
		res.Promoted = true
	}

	if !s.hasCandidate {
		s.candidate = predicted
		s.hasCandidate = true
	}

	res.WinStreak = s.winStreak
	res.Resolved = true
	if s.winStreak != 0 {
		res.BaseFee = predicted
	} else {
		res.BaseFee = s.candidate
	}
	return res
}

// Settle finalises a block when no prediction is available, typically because
// the block two heights back is unknown. The candidate is used as is; a block
// without observed transactions stays unresolved.
func (s *State) Settle() Resolution {
	return Resolution{
		BaseFee:   s.candidate,
		Resolved:  s.hasCandidate,
		WinStreak: s.winStreak,
	}
}

// Reset drops back to UNCERTAIN and clears the win streak.
func (s *State) Reset() {
	s.mode = ModeUncertain
	s.winStreak = 0
}

// Snapshot is an immutable copy of the state for readers outside the
// coordinator.
type Snapshot struct {
	Mode           Mode   `json:"-"`
	ModeName       string `json:"mode"`
	WinStreak      int    `json:"win_streak"`
	WinStreakLimit int    `json:"win_streak_limit"`
	Candidate      *int64 `json:"candidate_base_fee,omitempty"`
	CurrentHeight  int64  `json:"current_height"`
}

func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Mode:           s.mode,
		ModeName:       s.mode.String(),
		WinStreak:      s.winStreak,
		WinStreakLimit: s.winStreakLimit,
		CurrentHeight:  s.currentHeight,
	}
	if s.hasCandidate {
		c := s.candidate
		snap.Candidate = &c
	}
	return snap
}
