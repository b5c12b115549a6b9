package playback

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/audx/internal/shared"
	tu "github.com/desertthunder/audx/internal/testing"
)

type testClock struct{ *tu.FakeClock }

func (c testClock) NewTicker(d time.Duration) Ticker { return c.FakeClock.NewTicker(d) }

type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemKV() *memKV { return &memKV{data: make(map[string]string)} }

func (m *memKV) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// recorder wraps a PositionStore and reports every save attempt.
type recorder struct {
	*PositionStore
	mu     sync.Mutex
	saved  []float64
	writes chan float64
	fail   error
}

func newRecorder(kv KV) *recorder {
	return &recorder{PositionStore: NewPositionStore(kv), writes: make(chan float64, 64)}
}

func (r *recorder) Save(audioID int, seconds float64) error {
	r.mu.Lock()
	r.saved = append(r.saved, seconds)
	fail := r.fail
	r.mu.Unlock()

	defer func() { r.writes <- seconds }()
	if fail != nil {
		return fail
	}
	return r.PositionStore.Save(audioID, seconds)
}

func (r *recorder) Saved() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.saved...)
}

type harness struct {
	transport *Transport
	clock     *tu.FakeClock
	kv        *memKV
	positions *recorder
	path      string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	path := filepath.Join(t.TempDir(), "book.mp3")
	if err := os.WriteFile(path, []byte("ID3"), 0644); err != nil {
		t.Fatalf("failed to write media file: %v", err)
	}

	clock := tu.NewFakeClock(time.Unix(1_700_000_000, 0))
	tc := testClock{clock}
	kv := newMemKV()
	positions := newRecorder(kv)

	tr := NewTransport(Options{
		NewElement: func() Element { return NewClockElement(tc, nil) },
		Positions:  positions,
		Clock:      tc,
	})
	t.Cleanup(tr.Unbind)

	return &harness{transport: tr, clock: clock, kv: kv, positions: positions, path: path}
}

func (h *harness) load(t *testing.T, duration, resumeFrom float64) {
	t.Helper()
	if err := h.transport.Load(context.Background(), Source{URL: h.path, ItemID: 5, Duration: duration}, resumeFrom); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
}

func (h *harness) waitWrite(t *testing.T) float64 {
	t.Helper()
	select {
	case v := <-h.positions.writes:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for checkpoint write")
		return 0
	}
}

func waitState(t *testing.T, tr *Transport, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if tr.Status().State == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state never became %s, is %s", want, tr.Status().State)
}

func TestResumeClamp(t *testing.T) {
	const duration = 60.0

	tests := []struct {
		name   string
		stored string
		want   float64
	}{
		{"inside range", "30", 30},
		{"zero", "0", 0},
		{"at duration", "60", 60},
		{"past duration", "90.5", duration},
		{"negative is malformed", "-5", 0},
		{"garbage is malformed", "abc", 0},
		{"NaN is malformed", "NaN", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.kv.Set(PositionKey(5), tt.stored)

			h.load(t, duration, 12)

			st := h.transport.Status()
			if st.State != Ready {
				t.Fatalf("expected Ready, got %s", st.State)
			}
			if st.Position != tt.want {
				t.Errorf("expected start %v, got %v", tt.want, st.Position)
			}
		})
	}

	t.Run("hint is used when nothing is stored", func(t *testing.T) {
		for _, tc := range []struct{ hint, want float64 }{{12, 12}, {-3, 0}, {100, duration}} {
			h := newHarness(t)
			h.load(t, duration, tc.hint)

			if got := h.transport.CurrentTime(); got != tc.want {
				t.Errorf("hint %v: expected %v, got %v", tc.hint, tc.want, got)
			}
		}
	})

	t.Run("unknown duration only clamps below", func(t *testing.T) {
		h := newHarness(t)
		h.kv.Set(PositionKey(5), "500")
		h.load(t, 0, 0)

		if got := h.transport.CurrentTime(); got != 500 {
			t.Errorf("expected 500, got %v", got)
		}
	})
}

func TestCheckpointing(t *testing.T) {
	t.Run("five seconds of playback writes five monotonic offsets", func(t *testing.T) {
		h := newHarness(t)
		h.load(t, 60, 0)

		if err := h.transport.TogglePlayPause(); err != nil {
			t.Fatalf("TogglePlayPause() error = %v", err)
		}

		for range 5 {
			h.clock.Advance(time.Second)
			h.waitWrite(t)
		}

		if err := h.transport.TogglePlayPause(); err != nil {
			t.Fatalf("TogglePlayPause() error = %v", err)
		}

		saved := h.positions.Saved()
		if len(saved) != 5 {
			t.Fatalf("expected exactly 5 writes, got %d: %v", len(saved), saved)
		}
		for i, v := range saved {
			if v > 60 {
				t.Errorf("write %d exceeds duration: %v", i, v)
			}
			if i > 0 && v < saved[i-1] {
				t.Errorf("write %d decreased: %v after %v", i, v, saved[i-1])
			}
		}
		if saved[4] != 5 {
			t.Errorf("expected last offset 5, got %v", saved[4])
		}

		stored, ok, err := h.positions.Load(5)
		if err != nil || !ok || stored != 5 {
			t.Errorf("expected stored offset 5, got %v %v %v", stored, ok, err)
		}
	})

	t.Run("no writes after pause returns", func(t *testing.T) {
		h := newHarness(t)
		h.load(t, 60, 0)

		h.transport.TogglePlayPause()
		h.clock.Advance(time.Second)
		h.waitWrite(t)
		h.transport.TogglePlayPause()

		if n := h.clock.Tickers(); n != 0 {
			t.Fatalf("expected checkpoint ticker stopped, %d running", n)
		}

		h.clock.Advance(5 * time.Second)
		if got := len(h.positions.Saved()); got != 1 {
			t.Errorf("expected 1 write, got %d", got)
		}
	})

	t.Run("unbind stops checkpointing", func(t *testing.T) {
		h := newHarness(t)
		h.load(t, 60, 0)
		h.transport.TogglePlayPause()

		h.transport.Unbind()

		if n := h.clock.Tickers(); n != 0 {
			t.Errorf("expected no running tickers, got %d", n)
		}
		if st := h.transport.Status().State; st != Idle {
			t.Errorf("expected Idle, got %s", st)
		}
	})

	t.Run("write failures are swallowed", func(t *testing.T) {
		h := newHarness(t)
		h.positions.fail = errors.New("disk full")
		h.load(t, 60, 0)
		h.transport.TogglePlayPause()

		h.clock.Advance(time.Second)
		h.waitWrite(t)
		h.clock.Advance(time.Second)
		h.waitWrite(t)

		if st := h.transport.Status().State; st != Playing {
			t.Errorf("expected playback to continue, got %s", st)
		}
	})

	t.Run("no item id means no writes", func(t *testing.T) {
		h := newHarness(t)
		if err := h.transport.Load(context.Background(), Source{URL: h.path, Duration: 60}, 0); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		h.transport.TogglePlayPause()
		h.clock.Advance(2 * time.Second)
		h.transport.TogglePlayPause()

		if got := len(h.positions.Saved()); got != 0 {
			t.Errorf("expected no writes, got %d", got)
		}
	})
}

func TestTransportStates(t *testing.T) {
	t.Run("toggle twice from Paused returns to Paused", func(t *testing.T) {
		h := newHarness(t)
		h.load(t, 60, 0)
		h.transport.TogglePlayPause()
		h.transport.TogglePlayPause()

		var seen []Transition
		h.transport.Subscribe(func(tr Transition) { seen = append(seen, tr) })

		h.transport.TogglePlayPause()
		h.transport.TogglePlayPause()

		want := []Transition{{Paused, Playing}, {Playing, Paused}}
		if len(seen) != len(want) {
			t.Fatalf("expected %v, got %v", want, seen)
		}
		for i := range want {
			if seen[i] != want[i] {
				t.Errorf("transition %d: expected %v, got %v", i, want[i], seen[i])
			}
		}
	})

	t.Run("load emits Loading then Ready", func(t *testing.T) {
		h := newHarness(t)

		var seen []Transition
		h.transport.Subscribe(func(tr Transition) { seen = append(seen, tr) })
		h.load(t, 60, 0)

		if len(seen) != 2 || seen[0] != (Transition{Idle, Loading}) || seen[1] != (Transition{Loading, Ready}) {
			t.Errorf("unexpected transitions %v", seen)
		}
	})

	t.Run("controls are no-ops when unbound", func(t *testing.T) {
		tr := NewTransport(Options{})

		if err := tr.TogglePlayPause(); err != nil {
			t.Errorf("TogglePlayPause() error = %v", err)
		}
		tr.Seek(10)
		tr.SetVolume(0.5)
		if err := tr.SetPlaybackRate(1.5); err != nil {
			t.Errorf("SetPlaybackRate() error = %v", err)
		}
		if got := tr.Download(); got != "" {
			t.Errorf("expected empty download URL, got %q", got)
		}

		st := tr.Status()
		if st.State != Idle || st.Position != 0 {
			t.Errorf("unexpected status %+v", st)
		}
	})

	t.Run("unsupported rate is rejected", func(t *testing.T) {
		h := newHarness(t)
		h.load(t, 60, 0)

		for _, r := range []float64{0, 0.5, 1.75, 3} {
			if err := h.transport.SetPlaybackRate(r); !errors.Is(err, shared.ErrInvalidRate) {
				t.Errorf("rate %v: expected ErrInvalidRate, got %v", r, err)
			}
		}
	})

	t.Run("rate scales the playhead", func(t *testing.T) {
		h := newHarness(t)
		h.load(t, 60, 0)
		h.transport.SetPlaybackRate(2)
		h.transport.TogglePlayPause()

		h.clock.Advance(time.Second)
		h.waitWrite(t)

		if got := h.transport.CurrentTime(); got != 2 {
			t.Errorf("expected 2s at 2x, got %v", got)
		}
	})

	t.Run("seek clamps and updates immediately", func(t *testing.T) {
		h := newHarness(t)
		h.load(t, 60, 0)

		tests := []struct{ target, want float64 }{{-10, 0}, {25, 25}, {1000, 60}, {math.NaN(), 0}}
		for _, tt := range tests {
			h.transport.Seek(tt.target)
			if got := h.transport.CurrentTime(); got != tt.want {
				t.Errorf("Seek(%v): expected %v, got %v", tt.target, tt.want, got)
			}
		}
	})

	t.Run("volume is clamped", func(t *testing.T) {
		h := newHarness(t)
		h.load(t, 60, 0)

		h.transport.SetVolume(3)
		if got := h.transport.Status().Volume; got != 1 {
			t.Errorf("expected 1, got %v", got)
		}
		h.transport.SetVolume(-1)
		if got := h.transport.Status().Volume; got != 0 {
			t.Errorf("expected 0, got %v", got)
		}
	})

	t.Run("volume set while unbound carries into the next load", func(t *testing.T) {
		h := newHarness(t)

		h.transport.SetVolume(0.4)
		if got := h.transport.Status().Volume; got != 0.4 {
			t.Fatalf("expected 0.4 before load, got %v", got)
		}
		h.load(t, 60, 0)
		if got := h.transport.Status().Volume; got != 0.4 {
			t.Errorf("expected 0.4 after load, got %v", got)
		}
	})

	t.Run("download returns the raw URL", func(t *testing.T) {
		h := newHarness(t)
		h.load(t, 60, 0)

		if got := h.transport.Download(); got != h.path {
			t.Errorf("expected %s, got %s", h.path, got)
		}
	})

	t.Run("playing to the end moves to Ended", func(t *testing.T) {
		h := newHarness(t)
		h.load(t, 3, 0)
		h.transport.TogglePlayPause()

		for range 3 {
			h.clock.Advance(time.Second)
			h.waitWrite(t)
		}
		waitState(t, h.transport, Ended)

		for _, v := range h.positions.Saved() {
			if v > 3 {
				t.Errorf("write exceeds duration: %v", v)
			}
		}
		if n := h.clock.Tickers(); n != 0 {
			t.Errorf("expected checkpointing stopped at end, %d running", n)
		}

		h.transport.TogglePlayPause()
		st := h.transport.Status()
		if st.State != Playing || st.Position != 0 {
			t.Errorf("expected restart from 0, got %+v", st)
		}
	})

	t.Run("media error on load leaves Idle", func(t *testing.T) {
		h := newHarness(t)

		err := h.transport.Load(context.Background(), Source{URL: filepath.Join(t.TempDir(), "missing.mp3"), ItemID: 5}, 0)
		if !errors.Is(err, shared.ErrMediaFailed) {
			t.Fatalf("expected ErrMediaFailed, got %v", err)
		}
		if st := h.transport.Status().State; st != Idle {
			t.Errorf("expected Idle, got %s", st)
		}
	})

	t.Run("reported media error stops checkpointing", func(t *testing.T) {
		h := newHarness(t)
		h.load(t, 60, 0)
		h.transport.TogglePlayPause()

		h.transport.ReportError(errors.New("decoder crashed"))

		if st := h.transport.Status().State; st != Idle {
			t.Errorf("expected Idle, got %s", st)
		}
		if n := h.clock.Tickers(); n != 0 {
			t.Errorf("expected no running tickers, got %d", n)
		}
	})

	t.Run("loading a new source detaches the old one", func(t *testing.T) {
		h := newHarness(t)
		h.load(t, 60, 0)
		h.transport.TogglePlayPause()

		other := filepath.Join(t.TempDir(), "other.mp3")
		os.WriteFile(other, []byte("ID3"), 0644)
		if err := h.transport.Load(context.Background(), Source{URL: other, ItemID: 6, Duration: 30}, 0); err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if n := h.clock.Tickers(); n != 0 {
			t.Errorf("expected previous checkpointer stopped, %d running", n)
		}
		st := h.transport.Status()
		if st.State != Ready || st.Source.ItemID != 6 {
			t.Errorf("unexpected status %+v", st)
		}
	})
}

func TestClockElementProbe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		if r.URL.Path == "/missing.mp3" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{"reachable", server.URL + "/book.mp3", nil},
		{"not found", server.URL + "/missing.mp3", shared.ErrMediaFailed},
		{"empty", "", shared.ErrNoSource},
		{"unsupported scheme", "ftp://example.com/a.mp3", shared.ErrMediaFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el := NewClockElement(nil, server.Client())
			err := el.Open(context.Background(), Source{URL: tt.url})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestPositionStore(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		store := NewPositionStore(newMemKV())

		if err := store.Save(5, 12.25); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		v, ok, err := store.Load(5)
		if err != nil || !ok || v != 12.25 {
			t.Errorf("Load() = %v, %v, %v", v, ok, err)
		}
	})

	t.Run("absent", func(t *testing.T) {
		_, ok, err := NewPositionStore(newMemKV()).Load(5)
		if ok || err != nil {
			t.Errorf("expected absent without error, got %v %v", ok, err)
		}
	})

	t.Run("rejects invalid offsets", func(t *testing.T) {
		store := NewPositionStore(newMemKV())
		for _, v := range []float64{-1, math.NaN(), math.Inf(1)} {
			if err := store.Save(5, v); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("Save(%v): expected ErrInvalidInput, got %v", v, err)
			}
		}
	})

	t.Run("malformed value", func(t *testing.T) {
		kv := newMemKV()
		kv.Set(PositionKey(5), "twelve")

		if _, _, err := NewPositionStore(kv).Load(5); !errors.Is(err, shared.ErrMalformedState) {
			t.Errorf("expected ErrMalformedState, got %v", err)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		store := NewPositionStore(newMemKV())
		store.Save(5, 1)
		store.Clear(5)
		if _, ok, _ := store.Load(5); ok {
			t.Error("expected offset cleared")
		}
	})

	t.Run("keys", func(t *testing.T) {
		if PositionKey(42) != "audio_position_42" {
			t.Errorf("unexpected key %s", PositionKey(42))
		}
		if id, ok := AudioIDFromKey("audio_position_42"); !ok || id != 42 {
			t.Errorf("AudioIDFromKey() = %d, %v", id, ok)
		}
		if _, ok := AudioIDFromKey("user"); ok {
			t.Error("expected non-position key to be rejected")
		}
	})
}

func TestRates(t *testing.T) {
	tests := []struct{ in, want float64 }{{1, 1.25}, {1.25, 1.5}, {1.5, 2}, {2, 1}, {0.5, 1}}
	for _, tt := range tests {
		if got := NextRate(tt.in); got != tt.want {
			t.Errorf("NextRate(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
