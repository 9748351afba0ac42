package viz

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/adsorb/internal/dynamo"
	"github.com/san-kum/adsorb/internal/sim"
)

func TestSparkline(t *testing.T) {
	if got := Sparkline(nil, 5); !strings.Contains(got, "─────") {
		t.Errorf("empty sparkline = %q", got)
	}
	got := Sparkline([]float64{0, 1, 2, 3}, 10)
	if !strings.Contains(got, "▁") || !strings.Contains(got, "█") {
		t.Errorf("sparkline misses extremes: %q", got)
	}
	if got := Sparkline([]float64{9, 9, 0, 1, 2}, 3); strings.Count(got, "█") != 1 || strings.Contains(got, "▇▇") {
		t.Errorf("sparkline should show only the last values: %q", got)
	}
}

func TestProgressBar(t *testing.T) {
	for _, f := range []float64{-1, 0, 0.5, 2} {
		got := ProgressBar(f, 10)
		if n := strings.Count(got, "█") + strings.Count(got, "░"); n != 10 {
			t.Errorf("ProgressBar(%g) has %d cells", f, n)
		}
	}
}

func TestMatrix(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, 0, -2.5, 4})
	out := Matrix(m, []string{"q0", "q1"}, nil)

	for _, want := range []string{"q0", "q1", "c0", "c1", "-2.5", "4", "."} {
		if !strings.Contains(out, want) {
			t.Errorf("matrix output misses %q:\n%s", want, out)
		}
	}
	if lines := strings.Count(out, "\n"); lines != 3 {
		t.Errorf("expected 3 lines, got %d", lines)
	}
}

func TestStatus(t *testing.T) {
	if !strings.Contains(Status(true, "done"), "ok") {
		t.Error("expected ok marker")
	}
	if !strings.Contains(Status(false, "bad"), "FAIL") {
		t.Error("expected FAIL marker")
	}
}

func TestLiveUpdate(t *testing.T) {
	cancelled := false
	m := NewLive("uptake", []string{"q0", "q1"}, 4, func() { cancelled = true })
	if m.Selected() != 1 {
		t.Errorf("expected first non-salt state selected, got %d", m.Selected())
	}

	var model tea.Model = m
	for i := 1; i <= 4; i++ {
		model, _ = model.Update(SampleMsg{Time: float64(i), Q: dynamo.State{1200, float64(i)}})
	}
	live := model.(Live)
	if live.Samples() != 4 {
		t.Errorf("expected 4 samples, got %d", live.Samples())
	}
	if !strings.Contains(live.View(), "100%") {
		t.Errorf("expected full progress:\n%s", live.View())
	}

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyUp})
	if model.(Live).Selected() != 0 {
		t.Error("up did not change the selection")
	}

	model, _ = model.Update(DoneMsg{Result: &sim.Result{Metrics: map[string]float64{"total_bound": 4}}})
	if !strings.Contains(model.(Live).View(), "total_bound") {
		t.Error("metrics missing after done")
	}

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Error("expected quit command")
	}
	if cancelled {
		t.Error("finished run must not be cancelled")
	}
}

func TestLiveQuitCancelsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewLive("uptake", []string{"q0"}, 10, cancel)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Error("expected quit command")
	}
	if !errors.Is(ctx.Err(), context.Canceled) {
		t.Error("quit did not cancel the run")
	}
}

func TestForwarder(t *testing.T) {
	var got []tea.Msg
	f := &Forwarder{send: func(msg tea.Msg) { got = append(got, msg) }}
	f.OnStep(sim.Sample{Time: 1})
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	if s, ok := got[0].(SampleMsg); !ok || s.Time != 1 {
		t.Errorf("unexpected message %#v", got[0])
	}
}
