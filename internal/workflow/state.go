package workflow

import (
	"fmt"

	"github.com/lyallcooper/hashmaker/internal/types"
)

// Target names which report a path selection produces.
type Target string

const (
	Primary    Target = "primary"
	Comparison Target = "comparison"
)

// ParseTarget validates a target name.
func ParseTarget(s string) (Target, error) {
	switch Target(s) {
	case Primary, Comparison:
		return Target(s), nil
	}
	return "", fmt.Errorf("unknown target %q", s)
}

// Screen is the tag of a workflow state.
type Screen string

const (
	ScreenLanding            Screen = "landing"
	ScreenProcessing         Screen = "processing"
	ScreenPrimaryReady       Screen = "primary-ready"
	ScreenDualSelect         Screen = "dual-select"
	ScreenComparisonAttached Screen = "comparison-attached"
	ScreenCompareResult      Screen = "compare-result"
	ScreenAbout              Screen = "about"
	ScreenError              Screen = "error"
)

// State is one workflow state. Each implementation carries only the reports
// valid for it.
type State interface {
	Screen() Screen
	// primary returns the primary report held by the state, if any.
	primary() *types.HashReport
}

// Landing is the start screen; no reports are held.
type Landing struct{}

// Processing waits for the engine. Held is the primary report kept while a
// comparison report is computed.
type Processing struct {
	Target Target
	Path   string
	Held   *types.HashReport
}

// PrimaryReady holds a freshly computed primary report.
type PrimaryReady struct {
	Primary *types.HashReport
}

// DualSelect offers both drop targets. Primary may be nil.
type DualSelect struct {
	Primary *types.HashReport
}

// ComparisonAttached holds a comparison report and, possibly, a primary.
type ComparisonAttached struct {
	Primary    *types.HashReport
	Comparison *types.HashReport
}

// CompareResult holds both reports and the outcome.
type CompareResult struct {
	Primary    *types.HashReport
	Comparison *types.HashReport
	Result     types.ComparisonResult
}

// About is the about screen.
type About struct{}

// Failed follows an engine rejection. No report is retained.
type Failed struct{}

func (Landing) Screen() Screen            { return ScreenLanding }
func (Processing) Screen() Screen         { return ScreenProcessing }
func (PrimaryReady) Screen() Screen       { return ScreenPrimaryReady }
func (DualSelect) Screen() Screen         { return ScreenDualSelect }
func (ComparisonAttached) Screen() Screen { return ScreenComparisonAttached }
func (CompareResult) Screen() Screen      { return ScreenCompareResult }
func (About) Screen() Screen              { return ScreenAbout }
func (Failed) Screen() Screen             { return ScreenError }

func (Landing) primary() *types.HashReport              { return nil }
func (s Processing) primary() *types.HashReport         { return s.Held }
func (s PrimaryReady) primary() *types.HashReport       { return s.Primary }
func (s DualSelect) primary() *types.HashReport         { return s.Primary }
func (s ComparisonAttached) primary() *types.HashReport { return s.Primary }
func (s CompareResult) primary() *types.HashReport      { return s.Primary }
func (About) primary() *types.HashReport                { return nil }
func (Failed) primary() *types.HashReport               { return nil }

// PrimaryReport returns the primary report held by s, if any.
func PrimaryReport(s State) *types.HashReport {
	return s.primary()
}

// ComparisonReport returns the comparison report held by s, if any.
func ComparisonReport(s State) *types.HashReport {
	switch st := s.(type) {
	case ComparisonAttached:
		return st.Comparison
	case CompareResult:
		return st.Comparison
	}
	return nil
}

// View is the JSON form of a state.
type View struct {
	Screen     Screen                 `json:"screen"`
	Target     Target                 `json:"target,omitempty"`
	Path       string                 `json:"path,omitempty"`
	Primary    *types.Summary         `json:"primary,omitempty"`
	Comparison *types.Summary         `json:"comparison,omitempty"`
	Result     types.ComparisonResult `json:"result,omitempty"`
}

// Describe returns the view of s.
func Describe(s State) View {
	v := View{Screen: s.Screen()}
	if r := PrimaryReport(s); r != nil {
		sum := r.Summary()
		v.Primary = &sum
	}
	if r := ComparisonReport(s); r != nil {
		sum := r.Summary()
		v.Comparison = &sum
	}
	switch st := s.(type) {
	case Processing:
		v.Target = st.Target
		v.Path = st.Path
	case CompareResult:
		v.Result = st.Result
	}
	return v
}

// ParseDestination maps a navigation request to its screen. "compare" is
// accepted for the dual-select screen.
func ParseDestination(s string) (Screen, error) {
	switch s {
	case string(ScreenLanding):
		return ScreenLanding, nil
	case string(ScreenAbout):
		return ScreenAbout, nil
	case "compare", string(ScreenDualSelect):
		return ScreenDualSelect, nil
	}
	return "", fmt.Errorf("%w: cannot navigate to %q", ErrInvalidTransition, s)
}
