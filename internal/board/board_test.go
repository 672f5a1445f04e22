// ABOUTME: Tests for the transport control facade
// ABOUTME: Covers routing isolation, concurrency rules, seek and sweeps
package board

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/soundbridge/soundbridge-go/internal/clipcache"
	"github.com/soundbridge/soundbridge-go/internal/library"
	"github.com/soundbridge/soundbridge-go/internal/mixer"
	"github.com/soundbridge/soundbridge-go/pkg/audio"
)

type testSinks struct {
	engines map[audio.SinkKind]*mixer.Engine
}

func newTestSinks() *testSinks {
	return &testSinks{engines: map[audio.SinkKind]*mixer.Engine{
		audio.SinkVirtual: mixer.NewEngine("virtual"),
		audio.SinkSpeaker: mixer.NewEngine("speaker"),
	}}
}

func (s *testSinks) Engine(kind audio.SinkKind) *mixer.Engine {
	return s.engines[kind]
}

// writeToneWAV writes a stereo 48kHz WAV where every sample is ~0.5
func writeToneWAV(t *testing.T, path string, frames int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	data := make([]int, frames*2)
	for i := range data {
		data[i] = 16384
	}

	enc := wav.NewEncoder(f, 48000, 16, 2, 1)
	buf := &gaudio.IntBuffer{
		Data:           data,
		Format:         &gaudio.Format{NumChannels: 2, SampleRate: 48000},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

// newTestBoard builds a board with the given sounds (name -> frames)
func newTestBoard(t *testing.T, sounds map[string]int) (*Board, *testSinks) {
	t.Helper()

	dir := t.TempDir()
	store := library.NewMemStore()
	for id, frames := range sounds {
		path := filepath.Join(dir, id+".wav")
		writeToneWAV(t, path, frames)
		if err := store.Put(library.Sound{ID: id, Name: id, FilePath: path, Volume: 1.0}); err != nil {
			t.Fatal(err)
		}
	}

	sinks := newTestSinks()
	b := New(store, clipcache.New(48000), sinks)
	t.Cleanup(b.Close)
	return b, sinks
}

func mixPeak(e *mixer.Engine, samples int) float32 {
	dst := make([]float32, samples)
	e.Mix(dst)
	var peak float32
	for _, s := range dst {
		if s > peak {
			peak = s
		}
		if -s > peak {
			peak = -s
		}
	}
	return peak
}

func TestPlayUnknownSound(t *testing.T) {
	b, _ := newTestBoard(t, nil)

	err := b.Play("ghost", PlayOptions{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Play(unknown) = %v, want ErrNotFound", err)
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound should report true")
	}
}

func TestPlayRoutesToVirtualOnly(t *testing.T) {
	b, sinks := newTestBoard(t, map[string]int{"horn": 48000})

	if err := b.Play("horn", PlayOptions{ConcurrentAllowed: true}); err != nil {
		t.Fatal(err)
	}

	if peak := mixPeak(sinks.Engine(audio.SinkVirtual), 128); peak == 0 {
		t.Error("normal play produced no virtual-sink output")
	}
	if peak := mixPeak(sinks.Engine(audio.SinkSpeaker), 128); peak != 0 {
		t.Errorf("normal play leaked into the speaker sink: peak %v", peak)
	}
}

func TestPlayLocalOnlyRoutesToSpeakerOnly(t *testing.T) {
	b, sinks := newTestBoard(t, map[string]int{"horn": 48000})

	if err := b.Play("horn", PlayOptions{LocalOnly: true, ConcurrentAllowed: true}); err != nil {
		t.Fatal(err)
	}

	playing := b.ListPlaying()
	if len(playing) != 1 || playing[0] != "horn" {
		t.Fatalf("ListPlaying = %v, want [horn]", playing)
	}

	if peak := mixPeak(sinks.Engine(audio.SinkSpeaker), 128); peak == 0 {
		t.Error("local-only play produced no speaker output")
	}
	if peak := mixPeak(sinks.Engine(audio.SinkVirtual), 128); peak != 0 {
		t.Errorf("local-only play leaked into the virtual sink: peak %v", peak)
	}
}

func TestPlayMonitorRoutesToBothSinks(t *testing.T) {
	b, sinks := newTestBoard(t, map[string]int{"horn": 48000})

	if err := b.Play("horn", PlayOptions{Monitor: true, ConcurrentAllowed: true}); err != nil {
		t.Fatal(err)
	}

	if peak := mixPeak(sinks.Engine(audio.SinkVirtual), 64); peak == 0 {
		t.Error("monitored play missing from virtual sink")
	}
	if peak := mixPeak(sinks.Engine(audio.SinkSpeaker), 64); peak == 0 {
		t.Error("monitored play missing from speaker sink")
	}
}

func TestStopThenPositionIsNull(t *testing.T) {
	b, _ := newTestBoard(t, map[string]int{"horn": 48000})

	if err := b.Play("horn", PlayOptions{ConcurrentAllowed: true}); err != nil {
		t.Fatal(err)
	}
	if _, ok := b.Position("horn"); !ok {
		t.Fatal("expected a position while playing")
	}

	b.Stop("horn")
	if _, ok := b.Position("horn"); ok {
		t.Error("Position after Stop should be null")
	}
	if b.IsPlaying("horn") {
		t.Error("IsPlaying after Stop should be false")
	}

	// Stopping again is a no-op, not an error
	b.Stop("horn")
	b.Stop("never-played")
}

func TestStopRemovesFromAllRegistries(t *testing.T) {
	b, sinks := newTestBoard(t, map[string]int{"horn": 48000})

	if err := b.Play("horn", PlayOptions{Monitor: true, ConcurrentAllowed: true}); err != nil {
		t.Fatal(err)
	}
	b.Stop("horn")

	if n := sinks.Engine(audio.SinkVirtual).VoiceCount(); n != 0 {
		t.Errorf("virtual registry holds %d voices after stop", n)
	}
	if n := sinks.Engine(audio.SinkSpeaker).VoiceCount(); n != 0 {
		t.Errorf("speaker registry holds %d voices after stop", n)
	}
}

func TestConcurrentDisabledStopsOthers(t *testing.T) {
	b, sinks := newTestBoard(t, map[string]int{"a": 48000, "b": 48000})

	if err := b.Play("a", PlayOptions{ConcurrentAllowed: true}); err != nil {
		t.Fatal(err)
	}
	if err := b.Play("b", PlayOptions{ConcurrentAllowed: false}); err != nil {
		t.Fatal(err)
	}

	playing := b.ListPlaying()
	if len(playing) != 1 || playing[0] != "b" {
		t.Fatalf("ListPlaying = %v, want [b]", playing)
	}
	if n := sinks.Engine(audio.SinkVirtual).VoiceCount(); n != 1 {
		t.Errorf("virtual registry holds %d voices, want only b", n)
	}
}

func TestReplaySameSoundReplacesVoice(t *testing.T) {
	b, sinks := newTestBoard(t, map[string]int{"horn": 48000})

	if err := b.Play("horn", PlayOptions{ConcurrentAllowed: true}); err != nil {
		t.Fatal(err)
	}
	if err := b.Play("horn", PlayOptions{ConcurrentAllowed: true}); err != nil {
		t.Fatal(err)
	}

	if n := sinks.Engine(audio.SinkVirtual).VoiceCount(); n != 1 {
		t.Errorf("virtual registry holds %d voices after replay, want 1", n)
	}
	if len(b.ListPlaying()) != 1 {
		t.Errorf("ListPlaying = %v, want one entry", b.ListPlaying())
	}
}

func TestSeekPositionRoundTrip(t *testing.T) {
	b, sinks := newTestBoard(t, map[string]int{"horn": 96000}) // 2s

	if err := b.Play("horn", PlayOptions{ConcurrentAllowed: true}); err != nil {
		t.Fatal(err)
	}

	b.Seek("horn", 1.0)

	// The seek lands on the next pull; one small mix stands in for
	// one callback period.
	dst := make([]float32, 128*2)
	sinks.Engine(audio.SinkVirtual).Mix(dst)

	pos, ok := b.Position("horn")
	if !ok {
		t.Fatal("expected a position while playing")
	}
	if math.Abs(pos-1.0) > 0.05 {
		t.Errorf("Position after Seek(1.0) = %v, want ~1.0", pos)
	}

	// Seeking a stopped sound is a no-op
	b.Stop("horn")
	b.Seek("horn", 0.5)
}

func TestNaturalFinishSweep(t *testing.T) {
	b, sinks := newTestBoard(t, map[string]int{"blip": 16})

	if err := b.Play("blip", PlayOptions{ConcurrentAllowed: true}); err != nil {
		t.Fatal(err)
	}

	var events []Event
	b.Subscribe(func(ev Event) { events = append(events, ev) })

	// Drain the clip on the "audio thread"
	dst := make([]float32, 64*2)
	sinks.Engine(audio.SinkVirtual).Mix(dst)

	b.sweepOnce()

	if len(b.ListPlaying()) != 0 {
		t.Errorf("ListPlaying after finish = %v, want empty", b.ListPlaying())
	}
	if _, ok := b.Position("blip"); ok {
		t.Error("Position after natural finish should be null")
	}

	found := false
	for _, ev := range events {
		if ev.Type == EventFinished && ev.SoundID == "blip" {
			found = true
		}
	}
	if !found {
		t.Errorf("no finished event published: %v", events)
	}
}

func TestStopAll(t *testing.T) {
	b, _ := newTestBoard(t, map[string]int{"a": 48000, "b": 48000})

	if err := b.Play("a", PlayOptions{ConcurrentAllowed: true}); err != nil {
		t.Fatal(err)
	}
	if err := b.Play("b", PlayOptions{ConcurrentAllowed: true}); err != nil {
		t.Fatal(err)
	}

	b.StopAll()
	if len(b.ListPlaying()) != 0 {
		t.Errorf("ListPlaying after StopAll = %v", b.ListPlaying())
	}

	// Idempotent
	b.StopAll()
}

func TestEventsPublished(t *testing.T) {
	b, _ := newTestBoard(t, map[string]int{"horn": 48000})

	var events []Event
	b.Subscribe(func(ev Event) { events = append(events, ev) })

	if err := b.Play("horn", PlayOptions{ConcurrentAllowed: true}); err != nil {
		t.Fatal(err)
	}
	b.Stop("horn")

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %v", len(events), events)
	}
	if events[0].Type != EventStarted || events[1].Type != EventStopped {
		t.Errorf("event order = %v, want started then stopped", events)
	}
}

func TestSetSoundGainAffectsMix(t *testing.T) {
	b, sinks := newTestBoard(t, map[string]int{"horn": 96000})

	if err := b.Play("horn", PlayOptions{ConcurrentAllowed: true}); err != nil {
		t.Fatal(err)
	}

	loud := mixPeak(sinks.Engine(audio.SinkVirtual), 64)
	b.SetSoundGain("horn", 0.25)
	quiet := mixPeak(sinks.Engine(audio.SinkVirtual), 64)

	if quiet >= loud {
		t.Errorf("gain change had no effect: %v -> %v", loud, quiet)
	}
	if math.Abs(float64(quiet-loud*0.25)) > 0.01 {
		t.Errorf("quiet peak = %v, want ~%v", quiet, loud*0.25)
	}
}

func TestControlsConcurrentWithSweep(t *testing.T) {
	// Natural finishes compact a sound's voice slice while seek, gain
	// and position calls walk it. Run them against each other; the race
	// detector owns the verdict.
	b, sinks := newTestBoard(t, map[string]int{"blip": 64, "drone": 96000})

	if err := b.Play("blip", PlayOptions{Monitor: true, ConcurrentAllowed: true}); err != nil {
		t.Fatal(err)
	}
	if err := b.Play("drone", PlayOptions{Monitor: true, ConcurrentAllowed: true}); err != nil {
		t.Fatal(err)
	}

	// Finish blip's virtual voice only; its speaker voice stays live,
	// so every sweep rebuilds a slice the control calls also touch.
	dst := make([]float32, 128*2)
	sinks.Engine(audio.SinkVirtual).Mix(dst)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for _, fn := range []func(){
		func() { b.Seek("blip", 0.001); b.Seek("drone", 0.5) },
		func() { b.SetSoundGain("blip", 0.5); b.SetSoundGain("drone", 0.5) },
		func() { b.Position("blip"); b.Position("drone") },
	} {
		wg.Add(1)
		go func(fn func()) {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					fn()
				}
			}
		}(fn)
	}

	for i := 0; i < 200; i++ {
		b.sweepOnce()
	}
	close(stop)
	wg.Wait()

	if !b.IsPlaying("drone") {
		t.Error("drone should still be playing")
	}
}

func TestMutedRecordStaysMuted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hush.wav")
	writeToneWAV(t, path, 96000)

	store := library.NewMemStore()
	if err := store.Put(library.Sound{ID: "hush", Name: "hush", FilePath: path, Volume: 0}); err != nil {
		t.Fatal(err)
	}

	sinks := newTestSinks()
	b := New(store, clipcache.New(48000), sinks)
	t.Cleanup(b.Close)

	if err := b.Play("hush", PlayOptions{ConcurrentAllowed: true}); err != nil {
		t.Fatal(err)
	}

	if peak := mixPeak(sinks.Engine(audio.SinkVirtual), 128); peak != 0 {
		t.Errorf("muted record produced output: peak %v", peak)
	}

	// Muted is not stopped: the sound is playing and advancing
	pos, ok := b.Position("hush")
	if !ok {
		t.Fatal("muted sound should report a position")
	}
	if pos == 0 {
		t.Error("muted sound cursor did not advance")
	}
}

func TestPlayOptionOverrides(t *testing.T) {
	b, sinks := newTestBoard(t, map[string]int{"horn": 96000}) // 2s, record volume 1.0

	start := 1.5
	gain := float32(0.25)
	if err := b.Play("horn", PlayOptions{ConcurrentAllowed: true, StartSeconds: &start, Gain: &gain}); err != nil {
		t.Fatal(err)
	}

	pos, ok := b.Position("horn")
	if !ok {
		t.Fatal("expected a position")
	}
	if math.Abs(pos-1.5) > 0.01 {
		t.Errorf("start override: position = %v, want ~1.5", pos)
	}

	// Tone samples are 0.5; the gain override scales them to 0.125
	peak := mixPeak(sinks.Engine(audio.SinkVirtual), 64)
	if math.Abs(float64(peak-0.125)) > 0.01 {
		t.Errorf("gain override: peak = %v, want ~0.125", peak)
	}
}

func TestStartPositionFromRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "late.wav")
	writeToneWAV(t, path, 96000) // 2s

	store := library.NewMemStore()
	if err := store.Put(library.Sound{ID: "late", Name: "late", FilePath: path, Volume: 1.0, StartPosition: 1.5}); err != nil {
		t.Fatal(err)
	}

	sinks := newTestSinks()
	b := New(store, clipcache.New(48000), sinks)
	t.Cleanup(b.Close)

	if err := b.Play("late", PlayOptions{ConcurrentAllowed: true}); err != nil {
		t.Fatal(err)
	}

	pos, ok := b.Position("late")
	if !ok {
		t.Fatal("expected a position")
	}
	if math.Abs(pos-1.5) > 0.01 {
		t.Errorf("start position = %v, want ~1.5", pos)
	}
}
