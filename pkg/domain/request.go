package domain

import (
	"fmt"
	"slices"
	"time"
)

// GateID names a synchronization checkpoint inside a transition.
type GateID string

const (
	// GateAfterUnload is awaited once the previous content is gone.
	GateAfterUnload GateID = "after-unload"
	// GateBeforeActivation is awaited before loaded content is activated.
	GateBeforeActivation GateID = "before-activation"
)

func (g GateID) String() string { return string(g) }

// CacheClearMode selects how ClearCacheAndRetry invalidates the content cache.
type CacheClearMode string

const (
	CacheClearAll                   CacheClearMode = "all"
	CacheClearDependencies          CacheClearMode = "dependencies"
	CacheClearDependenciesThenClean CacheClearMode = "dependencies_then_clean"
)

// Default progress window occupied by the content load.
const (
	DefaultProgressMin = 0.1
	DefaultProgressMax = 0.9
)

// FallbackOptions describes where a failed transition may go instead.
type FallbackOptions struct {
	Enabled      bool           `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Destination  string         `mapstructure:"destination" yaml:"destination" json:"destination"`
	AntiSpill    bool           `mapstructure:"anti_spill" yaml:"anti_spill" json:"anti_spill"`
	Presentation string         `mapstructure:"presentation" yaml:"presentation" json:"presentation,omitempty"`
	Params       map[string]any `mapstructure:"params" yaml:"params" json:"params,omitempty"`
}

// Request is the immutable description of one transition.
// The orchestrator never mutates a Request it has been given.
type Request struct {
	Destination string         `mapstructure:"destination" yaml:"destination" json:"destination"`
	Additive    bool           `mapstructure:"additive" yaml:"additive" json:"additive"`
	Keep        []string       `mapstructure:"keep" yaml:"keep" json:"keep,omitempty"`
	Params      map[string]any `mapstructure:"params" yaml:"params" json:"params,omitempty"`

	// Presentation selects a registered loading presenter; empty selects the default.
	Presentation string `mapstructure:"presentation" yaml:"presentation" json:"presentation,omitempty"`
	LoadingKey   string `mapstructure:"loading_key" yaml:"loading_key" json:"loading_key,omitempty"`

	FadeIn          time.Duration `mapstructure:"fade_in" yaml:"fade_in" json:"fade_in"`
	FadeOut         time.Duration `mapstructure:"fade_out" yaml:"fade_out" json:"fade_out"`
	BeforeFadeDelay time.Duration `mapstructure:"before_fade_delay" yaml:"before_fade_delay" json:"before_fade_delay"`
	AfterFadeDelay  time.Duration `mapstructure:"after_fade_delay" yaml:"after_fade_delay" json:"after_fade_delay"`

	ServerGate        GateID        `mapstructure:"server_gate" yaml:"server_gate" json:"server_gate,omitempty"`
	ServerGateTimeout time.Duration `mapstructure:"server_gate_timeout" yaml:"server_gate_timeout" json:"server_gate_timeout"`
	ActivationGate    GateID        `mapstructure:"activation_gate" yaml:"activation_gate" json:"activation_gate,omitempty"`
	ActivationTimeout time.Duration `mapstructure:"activation_timeout" yaml:"activation_timeout" json:"activation_timeout"`

	AntiSpill      bool `mapstructure:"anti_spill" yaml:"anti_spill" json:"anti_spill"`
	DiscardSpilled bool `mapstructure:"discard_spilled" yaml:"discard_spilled" json:"discard_spilled"`

	ProgressMin float64 `mapstructure:"progress_min" yaml:"progress_min" json:"progress_min"`
	ProgressMax float64 `mapstructure:"progress_max" yaml:"progress_max" json:"progress_max"`

	CacheClear CacheClearMode  `mapstructure:"cache_clear" yaml:"cache_clear" json:"cache_clear,omitempty"`
	Fallback   FallbackOptions `mapstructure:"fallback" yaml:"fallback" json:"fallback"`
}

// WithDefaults returns a copy with gate ids, progress window and cache mode filled in.
func (r Request) WithDefaults() Request {
	if r.ServerGate == "" {
		r.ServerGate = GateAfterUnload
	}
	if r.ActivationGate == "" {
		r.ActivationGate = GateBeforeActivation
	}
	if r.ProgressMin == 0 && r.ProgressMax == 0 {
		r.ProgressMin, r.ProgressMax = DefaultProgressMin, DefaultProgressMax
	}
	if r.CacheClear == "" {
		r.CacheClear = CacheClearAll
	}
	r.Keep = slices.Clone(r.Keep)
	return r
}

// Validate rejects requests the orchestrator cannot run.
func (r Request) Validate() error {
	if r.Destination == "" {
		return fmt.Errorf("%w: destination is required", ErrInvalidRequest)
	}
	switch r.CacheClear {
	case "", CacheClearAll, CacheClearDependencies, CacheClearDependenciesThenClean:
	default:
		return fmt.Errorf("%w: unknown cache clear mode %q", ErrInvalidRequest, r.CacheClear)
	}
	for _, d := range []time.Duration{r.FadeIn, r.FadeOut, r.BeforeFadeDelay, r.AfterFadeDelay, r.ServerGateTimeout, r.ActivationTimeout} {
		if d < 0 {
			return fmt.Errorf("%w: durations must not be negative", ErrInvalidRequest)
		}
	}
	if r.Fallback.Enabled && r.Fallback.Destination == "" {
		return fmt.Errorf("%w: fallback enabled without destination", ErrInvalidRequest)
	}
	return nil
}

// Keeps reports whether ref is protected from unloading.
func (r Request) Keeps(ref string) bool {
	return slices.Contains(r.Keep, ref)
}

// CanFallback reports whether the request allows a fallback run.
func (r Request) CanFallback() bool {
	return r.Fallback.Enabled && r.Fallback.Destination != ""
}

// FallbackRequest derives the reduced-feature request run after a failure:
// replacing load, nothing kept, anti-spill only when the fallback asks for it,
// and no further fallback.
func (r Request) FallbackRequest() Request {
	fb := r
	fb.Destination = r.Fallback.Destination
	fb.Additive = false
	fb.Keep = nil
	fb.Params = r.Fallback.Params
	fb.AntiSpill = r.Fallback.AntiSpill
	fb.DiscardSpilled = false
	if r.Fallback.Presentation != "" {
		fb.Presentation = r.Fallback.Presentation
	}
	fb.Fallback = FallbackOptions{}
	return fb
}
