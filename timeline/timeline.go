package timeline

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Converter maps between ticks and seconds using one tempo for the whole
// range. It is anchored at a known (tick, seconds) pair, normally the start of
// the clip being transcribed; tempo changes after the anchor are ignored.
type Converter struct {
	PPQ           int
	BPM           float64
	AnchorTick    int64
	AnchorSeconds float64
}

// ValidBPM reports whether bpm is a usable tempo: positive and finite.
func ValidBPM(bpm float64) bool {
	return bpm > 0 && !math.IsInf(bpm, 1)
}

func NewConverter(ppq int, bpm float64, anchorTick int64, anchorSeconds float64) (*Converter, error) {
	if ppq <= 0 {
		return nil, errors.Errorf("ticks per quarter note must be positive, got %v", ppq)
	}
	if !ValidBPM(bpm) {
		return nil, errors.Errorf("tempo must be a positive bpm, got %v", bpm)
	}
	return &Converter{PPQ: ppq, BPM: bpm, AnchorTick: anchorTick, AnchorSeconds: anchorSeconds}, nil
}

func (c *Converter) secondsPerTick() float64 {
	return 60 / (c.BPM * float64(c.PPQ))
}

func (c *Converter) TickToSeconds(tick int64) float64 {
	return c.AnchorSeconds + float64(tick-c.AnchorTick)*c.secondsPerTick()
}

// SecondsToTick rounds to the nearest tick.
func (c *Converter) SecondsToTick(seconds float64) int64 {
	return c.AnchorTick + int64(math.Round((seconds-c.AnchorSeconds)/c.secondsPerTick()))
}

type TempoEvent struct {
	Tick int64   `yaml:"tick" json:"tick"`
	BPM  float64 `yaml:"bpm" json:"bpm"`
}

// TempoMap converts across tempo changes. Events are kept sorted by tick and
// the first one always sits at tick 0.
type TempoMap struct {
	ppq    int
	events []TempoEvent
}

func NewTempoMap(ppq int, events []TempoEvent) (*TempoMap, error) {
	if ppq <= 0 {
		return nil, errors.Errorf("ticks per quarter note must be positive, got %v", ppq)
	}
	if len(events) == 0 {
		return nil, errors.New("tempo map needs at least one tempo event")
	}
	sorted := make([]TempoEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Tick < sorted[j].Tick
	})
	for _, e := range sorted {
		if !ValidBPM(e.BPM) {
			return nil, errors.Errorf("tempo event at tick %v has invalid bpm %v", e.Tick, e.BPM)
		}
	}
	// NOTE: whatever tempo comes first also governs everything before it
	sorted[0].Tick = 0
	return &TempoMap{ppq: ppq, events: sorted}, nil
}

func (m *TempoMap) PPQ() int {
	return m.ppq
}

func (m *TempoMap) Events() []TempoEvent {
	res := make([]TempoEvent, len(m.events))
	copy(res, m.events)
	return res
}

func (m *TempoMap) indexAt(tick int64) int {
	// first event with Tick > tick, minus one
	i := sort.Search(len(m.events), func(i int) bool {
		return m.events[i].Tick > tick
	})
	if i == 0 {
		return 0
	}
	return i - 1
}

// TempoAt returns the tempo event in force at tick.
func (m *TempoMap) TempoAt(tick int64) TempoEvent {
	return m.events[m.indexAt(tick)]
}

func (m *TempoMap) segmentSeconds(e TempoEvent, ticks int64) float64 {
	return float64(ticks) * 60 / (e.BPM * float64(m.ppq))
}

func (m *TempoMap) TickToSeconds(tick int64) float64 {
	var seconds float64
	for i, e := range m.events {
		if e.Tick >= tick && i > 0 {
			break
		}
		end := tick
		if i+1 < len(m.events) && m.events[i+1].Tick < tick {
			end = m.events[i+1].Tick
		}
		seconds += m.segmentSeconds(e, end-e.Tick)
	}
	return seconds
}

// SecondsToTick rounds to the nearest tick.
func (m *TempoMap) SecondsToTick(seconds float64) int64 {
	var elapsed float64
	for i, e := range m.events {
		if i+1 < len(m.events) {
			next := m.events[i+1]
			segment := m.segmentSeconds(e, next.Tick-e.Tick)
			if elapsed+segment <= seconds {
				elapsed += segment
				continue
			}
		}
		ticks := (seconds - elapsed) * e.BPM * float64(m.ppq) / 60
		return e.Tick + int64(math.Round(ticks))
	}
	// unreachable, the last event always returns
	return 0
}

// Converter returns a single tempo converter anchored at tick, using the tempo
// in force there.
func (m *TempoMap) Converter(tick int64) *Converter {
	return &Converter{
		PPQ:           m.ppq,
		BPM:           m.TempoAt(tick).BPM,
		AnchorTick:    tick,
		AnchorSeconds: m.TickToSeconds(tick),
	}
}
