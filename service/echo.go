package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"

	"go-signal-server/janus"
)

// DefaultEchoDuration bounds an echo test run when the caller gives no
// duration; it is also the hard cap a longer request is clamped to.
const DefaultEchoDuration = 180 * time.Second

// ErrEchoTimeout is returned when the relay produced no answer before the
// clamped deadline. The session has already been destroyed when it is seen.
var ErrEchoTimeout = errors.New("timed out waiting for echo answer")

// RelayClient is the contract the echo orchestrator needs from the media
// gateway. *janus.Client satisfies it.
type RelayClient interface {
	CreateSession(ctx context.Context) (uint64, error)
	AttachEcho(ctx context.Context, session uint64) (uint64, error)
	SendOffer(ctx context.Context, session, handle uint64, offer webrtc.SessionDescription) error
	Subscribe(ctx context.Context, session uint64, onEvent func(janus.Event))
	DestroySession(session uint64) error
}

type EchoTestService interface {
	RunEchoTest(ctx context.Context, offer string, requested time.Duration) (string, error)
}

type echoTestService struct {
	relay       RelayClient
	maxDuration time.Duration
}

// NewEchoTestService function for dependency injection
func NewEchoTestService(relay RelayClient, maxDuration time.Duration) EchoTestService {
	if maxDuration <= 0 {
		maxDuration = DefaultEchoDuration
	}
	return &echoTestService{relay: relay, maxDuration: maxDuration}
}

// RunEchoTest drives one session through the gateway: create, attach the
// echo plugin, push the offer, then wait for the first answer event or the
// deadline, whichever comes first.
func (s *echoTestService) RunEchoTest(ctx context.Context, offer string, requested time.Duration) (string, error) {
	if strings.TrimSpace(offer) == "" {
		return "", fmt.Errorf("%w: empty offer", ErrValidation)
	}
	effective := requested
	if effective > s.maxDuration {
		effective = s.maxDuration
	}
	// A non-positive duration is an immediate timeout, not a validation
	// error; the relay is never contacted so there is nothing to destroy.
	if effective <= 0 {
		return "", ErrEchoTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, effective)
	defer cancel()

	session, err := s.relay.CreateSession(ctx)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrEchoTimeout
		}
		return "", fmt.Errorf("session creation failed: %w", err)
	}

	// One-shot answer slot. The buffered send behind a default branch makes
	// a second resolution, or an event arriving after the deadline, a no-op
	// that never blocks the event loop.
	answer := make(chan webrtc.SessionDescription, 1)
	s.relay.Subscribe(ctx, session, func(ev janus.Event) {
		if ev.Jsep == nil || ev.Jsep.Type != webrtc.SDPTypeAnswer {
			return
		}
		select {
		case answer <- *ev.Jsep:
		default:
		}
	})

	handle, err := s.relay.AttachEcho(ctx, session)
	if err != nil {
		s.teardown(session)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrEchoTimeout
		}
		return "", fmt.Errorf("plugin start failed: %w", err)
	}
	sd := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offer}
	if err := s.relay.SendOffer(ctx, session, handle, sd); err != nil {
		s.teardown(session)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrEchoTimeout
		}
		return "", fmt.Errorf("plugin start failed: %w", err)
	}

	select {
	case desc := <-answer:
		// Success leaves the session to the gateway's own expiry; only
		// the failure paths destroy it explicitly.
		return desc.SDP, nil
	case <-ctx.Done():
		s.teardown(session)
		// A caller hanging up is not a timeout; only an elapsed deadline
		// gets the timeout-specific reason.
		if errors.Is(ctx.Err(), context.Canceled) {
			return "", fmt.Errorf("echo test canceled: %w", ctx.Err())
		}
		return "", ErrEchoTimeout
	}
}

func (s *echoTestService) teardown(session uint64) {
	if err := s.relay.DestroySession(session); err != nil {
		log.Println("Failed to destroy relay session:", err)
	}
}
