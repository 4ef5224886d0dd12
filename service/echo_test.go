package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"

	"go-signal-server/janus"
)

// fakeRelay honors its context the way the real client does: an expired or
// canceled context fails every call.
type fakeRelay struct {
	mu          sync.Mutex
	createErr   error
	createDelay time.Duration
	attachErr   error
	offerErr    error
	answer      string // SDP emitted right after the offer, when set
	onEvent     func(janus.Event)
	sentOffer   string
	destroyed   []uint64
}

func (f *fakeRelay) CreateSession(ctx context.Context) (uint64, error) {
	if f.createDelay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(f.createDelay):
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if f.createErr != nil {
		return 0, f.createErr
	}
	return 42, nil
}

func (f *fakeRelay) AttachEcho(ctx context.Context, session uint64) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if f.attachErr != nil {
		return 0, f.attachErr
	}
	return 77, nil
}

func (f *fakeRelay) SendOffer(ctx context.Context, session, handle uint64, offer webrtc.SessionDescription) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.offerErr != nil {
		return f.offerErr
	}
	f.mu.Lock()
	f.sentOffer = offer.SDP
	f.mu.Unlock()
	if f.answer != "" {
		f.emit(janus.Event{
			Session: session,
			Jsep:    &webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: f.answer},
		})
	}
	return nil
}

func (f *fakeRelay) Subscribe(ctx context.Context, session uint64, onEvent func(janus.Event)) {
	f.mu.Lock()
	f.onEvent = onEvent
	f.mu.Unlock()
}

func (f *fakeRelay) DestroySession(session uint64) error {
	f.mu.Lock()
	f.destroyed = append(f.destroyed, session)
	f.mu.Unlock()
	return nil
}

func (f *fakeRelay) emit(ev janus.Event) {
	f.mu.Lock()
	fn := f.onEvent
	f.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func (f *fakeRelay) destroyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.destroyed)
}

func TestRunEchoTest_AnswerBeforeDeadline(t *testing.T) {
	f := &fakeRelay{answer: "answer-sdp"}
	s := NewEchoTestService(f, time.Minute)

	got, err := s.RunEchoTest(context.Background(), "offer-sdp", time.Minute)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got != "answer-sdp" {
		t.Fatalf("answer = %q, want %q", got, "answer-sdp")
	}
	if f.sentOffer != "offer-sdp" {
		t.Fatalf("sent offer = %q", f.sentOffer)
	}
	// success never tears the session down
	if n := f.destroyCount(); n != 0 {
		t.Fatalf("destroy called %d times on success", n)
	}
}

func TestRunEchoTest_TimeoutDestroysOnce(t *testing.T) {
	f := &fakeRelay{}
	s := NewEchoTestService(f, time.Minute)

	_, err := s.RunEchoTest(context.Background(), "offer-sdp", 30*time.Millisecond)
	if !errors.Is(err, ErrEchoTimeout) {
		t.Fatalf("err = %v, want ErrEchoTimeout", err)
	}
	if n := f.destroyCount(); n != 1 {
		t.Fatalf("destroy called %d times, want 1", n)
	}

	// a late answer after teardown is discarded without blocking
	f.emit(janus.Event{
		Session: 42,
		Jsep:    &webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "late"},
	})
	f.emit(janus.Event{
		Session: 42,
		Jsep:    &webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "later"},
	})
	if n := f.destroyCount(); n != 1 {
		t.Fatalf("destroy count changed to %d after late events", n)
	}
}

func TestRunEchoTest_DurationClamped(t *testing.T) {
	f := &fakeRelay{}
	s := NewEchoTestService(f, 30*time.Millisecond)

	start := time.Now()
	_, err := s.RunEchoTest(context.Background(), "offer-sdp", time.Hour)
	if !errors.Is(err, ErrEchoTimeout) {
		t.Fatalf("err = %v, want ErrEchoTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("run took %s, clamp did not apply", elapsed)
	}
	if n := f.destroyCount(); n != 1 {
		t.Fatalf("destroy called %d times, want 1", n)
	}
}

func TestRunEchoTest_NonPositiveDurationTimesOutImmediately(t *testing.T) {
	for _, requested := range []time.Duration{0, -time.Second} {
		f := &fakeRelay{}
		s := NewEchoTestService(f, time.Minute)

		_, err := s.RunEchoTest(context.Background(), "offer-sdp", requested)
		if !errors.Is(err, ErrEchoTimeout) {
			t.Fatalf("duration %s: err = %v, want ErrEchoTimeout", requested, err)
		}
		// the relay is never contacted, so there is no session to destroy
		if n := f.destroyCount(); n != 0 {
			t.Fatalf("duration %s: destroy called %d times with no session", requested, n)
		}
	}
}

func TestRunEchoTest_DeadlineDuringSessionCreationIsTimeout(t *testing.T) {
	f := &fakeRelay{createDelay: 10 * time.Second}
	s := NewEchoTestService(f, time.Minute)

	_, err := s.RunEchoTest(context.Background(), "offer-sdp", 20*time.Millisecond)
	if !errors.Is(err, ErrEchoTimeout) {
		t.Fatalf("err = %v, want ErrEchoTimeout", err)
	}
	if n := f.destroyCount(); n != 0 {
		t.Fatalf("destroy called %d times with no session", n)
	}
}

func TestRunEchoTest_CallerCancellationIsNotTimeout(t *testing.T) {
	f := &fakeRelay{}
	s := NewEchoTestService(f, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := s.RunEchoTest(ctx, "offer-sdp", time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrEchoTimeout) {
		t.Fatalf("cancellation reported as timeout: %v", err)
	}
	// cancellation still tears the session down
	if n := f.destroyCount(); n != 1 {
		t.Fatalf("destroy called %d times, want 1", n)
	}
}

func TestRunEchoTest_EmptyOfferRejected(t *testing.T) {
	f := &fakeRelay{}
	s := NewEchoTestService(f, time.Minute)

	_, err := s.RunEchoTest(context.Background(), "   ", time.Minute)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if n := f.destroyCount(); n != 0 {
		t.Fatalf("destroy called %d times before any session existed", n)
	}
}

func TestRunEchoTest_SessionCreationFailure(t *testing.T) {
	f := &fakeRelay{createErr: errors.New("gateway down")}
	s := NewEchoTestService(f, time.Minute)

	_, err := s.RunEchoTest(context.Background(), "offer-sdp", time.Minute)
	if err == nil || !strings.Contains(err.Error(), "session creation failed") {
		t.Fatalf("err = %v, want session creation failure", err)
	}
	if n := f.destroyCount(); n != 0 {
		t.Fatalf("destroy called %d times with no session", n)
	}
}

func TestRunEchoTest_PluginFailureTearsDown(t *testing.T) {
	for name, f := range map[string]*fakeRelay{
		"attach fails": {attachErr: errors.New("no such plugin")},
		"offer fails":  {offerErr: errors.New("rejected")},
	} {
		t.Run(name, func(t *testing.T) {
			s := NewEchoTestService(f, time.Minute)

			_, err := s.RunEchoTest(context.Background(), "offer-sdp", time.Minute)
			if err == nil || !strings.Contains(err.Error(), "plugin start failed") {
				t.Fatalf("err = %v, want plugin start failure", err)
			}
			if n := f.destroyCount(); n != 1 {
				t.Fatalf("destroy called %d times, want 1", n)
			}
		})
	}
}

func TestRunEchoTest_IgnoresEventsWithoutAnswer(t *testing.T) {
	f := &fakeRelay{}
	s := NewEchoTestService(f, time.Minute)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := s.RunEchoTest(context.Background(), "offer-sdp", 200*time.Millisecond)
		if !errors.Is(err, ErrEchoTimeout) {
			t.Errorf("err = %v, want ErrEchoTimeout", err)
		}
	}()

	// events without a JSEP answer must not resolve the run
	for f.subscriber() == nil {
		time.Sleep(time.Millisecond)
	}
	f.emit(janus.Event{Session: 42})
	f.emit(janus.Event{Session: 42, Jsep: &webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "not-an-answer"}})
	<-done
}

func (f *fakeRelay) subscriber() func(janus.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.onEvent
}
