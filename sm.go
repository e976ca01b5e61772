package e2e

// SMState is the aggregation state machine's channel-level trust state.
type SMState uint8

const (
	SMDeinit SMState = iota // zero value: before SMCheckInit is called
	SMNoData
	SMInit
	SMValid
	SMInvalid
)

func (s SMState) String() string {
	switch s {
	case SMDeinit:
		return "DEINIT"
	case SMNoData:
		return "NODATA"
	case SMInit:
		return "INIT"
	case SMValid:
		return "VALID"
	case SMInvalid:
		return "INVALID"
	default:
		return "UNKNOWN"
	}
}

// SMConfig is the immutable per-channel configuration for the aggregation
// state machine. WindowSizeValid must be the largest of the three window
// sizes - it sizes the backing ring buffer for every state.
type SMConfig struct {
	WindowSizeValid   uint8
	WindowSizeInit    uint8
	WindowSizeInvalid uint8

	MinOKStateInit    uint8
	MaxErrorStateInit uint8

	MinOKStateValid    uint8
	MaxErrorStateValid uint8

	MinOKStateInvalid    uint8
	MaxErrorStateInvalid uint8

	// ClearToInvalid selects, for the NODATA->INVALID transition, whether
	// the window is wiped to NOTAVAILABLE (true) or resized using the
	// retain-most-recent policy below (false).
	ClearToInvalid bool
}

// SMCheckState is the per-channel aggregation state: a ring buffer of
// recent CheckStatus values plus the derived OK/error counts and the
// current SMState.
type SMCheckState struct {
	Window         []CheckStatus
	WindowTopIndex uint8
	OKCount        uint8
	ErrorCount     uint8
	State          SMState

	// pendingInitClear is set when a NODATA->INIT transition has just been
	// decided. Its window clear is deferred to the top of the *next*
	// SMCheck call, before that call's new profileStatus is added, so the
	// very sample that proved the transition stays visible in
	// OKCount/WindowTopIndex on the call that causes it (see DESIGN.md -
	// this is what the NODATA->INIT literal scenario exercises).
	//
	// No other transition defers this way: NODATA and INIT share the same
	// window size, so leaving the clear pending for one cycle never lets
	// WindowTopIndex or ok_count+error_count exceed the current window
	// size. Every size-changing transition (into or out of VALID/INVALID,
	// and NODATA->INVALID) instead applies its resize synchronously, in
	// the same SMCheck call that decides it.
	pendingInitClear bool
}

func currentWindowSize(cfg *SMConfig, state SMState) uint8 {
	switch state {
	case SMValid:
		return cfg.WindowSizeValid
	case SMInvalid:
		return cfg.WindowSizeInvalid
	case SMInit, SMNoData:
		return cfg.WindowSizeInit
	default:
		return 0
	}
}

// SMCheckInit fills the window with NOTAVAILABLE, zeroes the counters, and
// sets the state to NODATA.
func SMCheckInit(state *SMCheckState, cfg *SMConfig) StatusCode {
	if state == nil || cfg == nil {
		return StatusInputErrNull
	}
	state.Window = make([]CheckStatus, cfg.WindowSizeValid)
	for i := range state.Window {
		state.Window[i] = CheckNotAvailable
	}
	state.WindowTopIndex = 0
	state.OKCount = 0
	state.ErrorCount = 0
	state.State = SMNoData
	state.pendingInitClear = false
	return StatusOK
}

func (s *SMCheckState) clear() {
	for i := range s.Window {
		s.Window[i] = CheckNotAvailable
	}
	s.WindowTopIndex = 0
	s.OKCount = 0
	s.ErrorCount = 0
}

// resizeRetain implements the window-resize policy this module resolves
// the open question in SPEC_FULL.md with: retain the most recent
// min(curW, nextW) entries (nearest WindowTopIndex, in chronological
// order), fill the remainder of the window with NOTAVAILABLE, and set
// WindowTopIndex to the count of retained entries modulo the new window
// size.
func (s *SMCheckState) resizeRetain(cfg *SMConfig, from, to SMState) {
	curW := currentWindowSize(cfg, from)
	nextW := currentWindowSize(cfg, to)
	if curW == nextW || curW == 0 || nextW == 0 {
		return
	}

	keep := curW
	if nextW < keep {
		keep = nextW
	}

	recent := make([]CheckStatus, keep)
	for i := uint8(0); i < keep; i++ {
		idx := (int(s.WindowTopIndex) - 1 - int(i) + int(curW)*2) % int(curW)
		recent[keep-1-i] = s.Window[idx]
	}

	for i := range s.Window {
		s.Window[i] = CheckNotAvailable
	}
	copy(s.Window, recent)

	s.WindowTopIndex = keep % nextW
	s.OKCount = 0
	s.ErrorCount = 0
	for i := uint8(0); i < nextW; i++ {
		switch s.Window[i] {
		case CheckOK:
			s.OKCount++
		case CheckError:
			s.ErrorCount++
		}
	}
}

// applyStateTransitionWindowEffect shapes the window for a state the
// machine has already moved into, per the transition table in spec.md 4.5.
// It is called synchronously, within the same SMCheck call
// that decides the transition, for every transition except NODATA->INIT
// (see SMCheckState.pendingInitClear).
func (s *SMCheckState) applyStateTransitionWindowEffect(cfg *SMConfig, from, to SMState) {
	switch {
	case from == SMNoData && to == SMInvalid:
		if cfg.ClearToInvalid {
			s.clear()
		} else {
			s.resizeRetain(cfg, from, to)
		}
	default:
		s.resizeRetain(cfg, from, to)
	}
}

func (s *SMCheckState) countStatus(target CheckStatus, windowSize uint8) uint8 {
	var count uint8
	for i := uint8(0); i < windowSize; i++ {
		if s.Window[i] == target {
			count++
		}
	}
	return count
}

func (s *SMCheckState) addStatus(cfg *SMConfig, status CheckStatus) {
	w := currentWindowSize(cfg, s.State)
	s.Window[s.WindowTopIndex] = status
	s.OKCount = s.countStatus(CheckOK, w)
	s.ErrorCount = s.countStatus(CheckError, w)
	if s.WindowTopIndex == w-1 {
		s.WindowTopIndex = 0
	} else {
		s.WindowTopIndex++
	}
}

func smCheckNoData(state *SMCheckState, profileStatus CheckStatus) {
	if profileStatus != CheckError && profileStatus != CheckNoNewData {
		state.State = SMInit
		return
	}
	if state.WindowTopIndex == 0 {
		// WindowTopIndex wrapped: only ERROR/NONEWDATA has been observed
		// since init (any real arrival would already have moved to INIT).
		state.State = SMInvalid
	}
}

func smCheckInitState(state *SMCheckState, cfg *SMConfig) {
	switch {
	case state.OKCount >= cfg.MinOKStateInit && state.ErrorCount <= cfg.MaxErrorStateInit:
		state.State = SMValid
	case state.ErrorCount > cfg.MaxErrorStateInit:
		state.State = SMInvalid
	}
}

func smCheckValidState(state *SMCheckState, cfg *SMConfig) {
	if state.OKCount < cfg.MinOKStateValid || state.ErrorCount > cfg.MaxErrorStateValid {
		state.State = SMInvalid
	}
}

func smCheckInvalidState(state *SMCheckState, cfg *SMConfig) {
	if state.OKCount >= cfg.MinOKStateInvalid && state.ErrorCount <= cfg.MaxErrorStateInvalid {
		state.State = SMValid
	}
}

// SMCheck feeds one per-cycle profile status into the window, recounts
// OK/error occurrences, and evaluates state transitions.
func SMCheck(state *SMCheckState, cfg *SMConfig, profileStatus CheckStatus) StatusCode {
	if state == nil || cfg == nil {
		return StatusInputErrNull
	}
	if state.State == SMDeinit {
		return StatusWrongState
	}

	if state.pendingInitClear {
		state.clear()
		state.pendingInitClear = false
	}

	state.addStatus(cfg, profileStatus)

	from := state.State
	switch state.State {
	case SMNoData:
		smCheckNoData(state, profileStatus)
	case SMInit:
		smCheckInitState(state, cfg)
	case SMValid:
		smCheckValidState(state, cfg)
	case SMInvalid:
		smCheckInvalidState(state, cfg)
	}

	if state.State != from {
		if from == SMNoData && state.State == SMInit {
			state.pendingInitClear = true
		} else {
			state.applyStateTransitionWindowEffect(cfg, from, state.State)
		}
	}

	return StatusOK
}
