package signal

import (
	"errors"
	"math"
	"sort"
)

var (
	ErrInvalidFrequency     = errors.New("signal: frequency must be positive")
	ErrAmplitudeOverflow    = errors.New("signal: component amplitudes exceed maximum")
	ErrPatternDestabilized  = errors.New("signal: average component stability below minimum")
	ErrInterferenceOverload = errors.New("signal: interference above threshold")
	ErrResonanceLost        = errors.New("signal: stability factor below minimum")
)

const (
	// MaxAmplitudeSum bounds the summed amplitude across all components of
	// a model.
	MaxAmplitudeSum = 10.0

	// MinStability is the floor below which a model counts as destabilized.
	MinStability = 0.5

	// DefaultInterferenceThreshold is the default ceiling on average
	// pairwise interference.
	DefaultInterferenceThreshold = 0.85

	phaseStep = math.Pi / 4
)

// Component is one oscillatory contributor to a task's resource profile.
type Component struct {
	Frequency float64 `json:"frequency"`
	Amplitude float64 `json:"amplitude"`
	Phase     float64 `json:"phase"`
	Stability float64 `json:"stability"`
}

// Model holds the signal components of a single task and reduces them to a
// scalar stability factor usable for scheduling decisions.
type Model struct {
	components            []Component
	interferenceThreshold float64
	totalEnergy           float64
	stabilityFactor       float64
}

func NewModel() *Model {
	return &Model{
		interferenceThreshold: DefaultInterferenceThreshold,
		stabilityFactor:       1.0,
	}
}

func (m *Model) SetInterferenceThreshold(threshold float64) {
	m.interferenceThreshold = threshold
}

// StabilityFactor reports the model's health as of the last UpdateResonance.
func (m *Model) StabilityFactor() float64 {
	return m.stabilityFactor
}

func (m *Model) TotalEnergy() float64 {
	return m.totalEnergy
}

// Components returns a copy of the component list.
func (m *Model) Components() []Component {
	out := make([]Component, len(m.components))
	copy(out, m.components)
	return out
}

func (m *Model) Len() int {
	return len(m.components)
}

// AddComponent appends a component and revalidates the whole model. On any
// validation failure the component is removed again, so the model is left in
// its last valid state.
func (m *Model) AddComponent(frequency, amplitude, phase float64) error {
	if frequency <= 0 {
		return ErrInvalidFrequency
	}

	m.components = append(m.components, Component{
		Frequency: frequency,
		Amplitude: amplitude,
		Phase:     phase,
		Stability: 1.0,
	})

	if err := m.validate(); err != nil {
		m.components = m.components[:len(m.components)-1]
		return err
	}

	var energy float64
	for _, c := range m.components {
		energy += c.Amplitude * c.Amplitude
	}
	m.totalEnergy = energy
	return nil
}

func (m *Model) validate() error {
	var sum float64
	for _, c := range m.components {
		sum += c.Amplitude
	}
	if sum > MaxAmplitudeSum {
		return ErrAmplitudeOverflow
	}
	if m.averageComponentStability() < MinStability {
		return ErrPatternDestabilized
	}
	return nil
}

// averageComponentStability treats an empty model as maximally stable.
func (m *Model) averageComponentStability() float64 {
	if len(m.components) == 0 {
		return 1.0
	}
	var sum float64
	for _, c := range m.components {
		sum += c.Stability
	}
	return sum / float64(len(m.components))
}

// Interference averages the pairwise interference over every unordered pair
// of components. A model with fewer than two components has no pairs and
// reports zero.
func (m *Model) Interference() (float64, error) {
	n := len(m.components)
	if n < 2 {
		return 0, nil
	}

	var total float64
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := m.components[i], m.components[j]
			strength := a.Amplitude * b.Amplitude * math.Cos(math.Abs(a.Phase-b.Phase))
			resonance := 1 / (1 + math.Abs(1-a.Frequency/b.Frequency))
			total += strength * resonance
			pairs++
		}
	}

	avg := total / float64(pairs)
	if avg > m.interferenceThreshold {
		return avg, ErrInterferenceOverload
	}
	return avg, nil
}

// UpdateResonance recomputes the stability factor from the current
// interference and component stabilities. The factor is stored even when it
// falls below the minimum, so callers can inspect how far the model degraded.
func (m *Model) UpdateResonance() error {
	interference, err := m.Interference()
	if err != nil {
		return err
	}

	factor := (1 - interference) * m.averageComponentStability()
	if factor > 1 {
		factor = 1
	}
	if factor < 0 {
		factor = 0
	}
	m.stabilityFactor = factor

	if factor < MinStability {
		return ErrResonanceLost
	}
	return nil
}

// Optimize sorts components by ascending frequency (insertion order on ties)
// and spreads phases in fixed increments from the first component's phase.
// The re-phased layout is kept only when it does not lower the stability
// factor; otherwise the previous phases are restored.
func (m *Model) Optimize() error {
	if len(m.components) < 2 {
		return m.UpdateResonance()
	}

	before := m.stabilityFactor
	sort.SliceStable(m.components, func(i, j int) bool {
		return m.components[i].Frequency < m.components[j].Frequency
	})

	prior := make([]float64, len(m.components))
	for i, c := range m.components {
		prior[i] = c.Phase
	}

	base := m.components[0].Phase
	for i := range m.components {
		m.components[i].Phase = base + float64(i)*phaseStep
	}

	if err := m.UpdateResonance(); err == nil && m.stabilityFactor >= before {
		return nil
	}

	for i := range m.components {
		m.components[i].Phase = prior[i]
	}
	return m.UpdateResonance()
}
