package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pion/webrtc/v4"

	"go-signal-server/models"
	"go-signal-server/repo"
)

var (
	// ErrValidation marks bad caller input; handlers map it to 400.
	ErrValidation = errors.New("invalid signal request")

	// ErrNoPendingSignal means the queue has nothing for the key. Claiming
	// an empty queue is a normal outcome; handlers map it to 204.
	ErrNoPendingSignal = errors.New("no pending signal")
)

type SignalService interface {
	PutOfferOrAnswer(from, to, payload string) error
	PutCandidate(from, to, payload string) error
	ClaimNextSignal(to, from, kind string) (string, error)
	InvalidatePair(a, b string) error
}

// signalService implement interface SignalService with some dependencies
type signalService struct {
	signalRepo repo.SignalRepo
}

// NewSignalService function for dependency injection
func NewSignalService(repo repo.SignalRepo) SignalService {
	return &signalService{signalRepo: repo}
}

func (s *signalService) PutOfferOrAnswer(from, to, payload string) error {
	from, to, err := normalizePair(from, to)
	if err != nil {
		return err
	}
	if err := validatePayload(payload); err != nil {
		return err
	}
	sig := &models.PendingSignal{
		ToPeer:   to,
		FromPeer: from,
		Kind:     models.KindOfferAnswer,
		Payload:  payload,
	}
	// A fresh offer resets the handshake: everything still pending between
	// the pair is wiped before the insert, inside one transaction.
	if isOffer(payload) {
		return s.signalRepo.InsertInvalidating(sig)
	}
	return s.signalRepo.Insert(sig)
}

func (s *signalService) PutCandidate(from, to, payload string) error {
	from, to, err := normalizePair(from, to)
	if err != nil {
		return err
	}
	if err := validatePayload(payload); err != nil {
		return err
	}
	return s.signalRepo.Insert(&models.PendingSignal{
		ToPeer:   to,
		FromPeer: from,
		Kind:     models.KindCandidate,
		Payload:  payload,
	})
}

func (s *signalService) ClaimNextSignal(to, from, kind string) (string, error) {
	to, from, err := normalizePair(to, from)
	if err != nil {
		return "", err
	}
	switch kind {
	case "", models.KindAny:
		kind = models.KindAny
	case models.KindOfferAnswer, models.KindCandidate:
	default:
		return "", fmt.Errorf("%w: unknown signal kind %q", ErrValidation, kind)
	}
	sig, err := s.signalRepo.ClaimOldest(to, from, kind)
	if err != nil {
		return "", err
	}
	if sig == nil {
		return "", ErrNoPendingSignal
	}
	return sig.Payload, nil
}

func (s *signalService) InvalidatePair(a, b string) error {
	a, b, err := normalizePair(a, b)
	if err != nil {
		return err
	}
	return s.signalRepo.DeletePair(a, b)
}

// Peer identities compare case-insensitively; they are normalized once here
// so the store only ever sees exact strings.
func normalizePair(a, b string) (string, string, error) {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return "", "", fmt.Errorf("%w: empty peer identity", ErrValidation)
	}
	return a, b, nil
}

func validatePayload(payload string) error {
	if payload == "" {
		return fmt.Errorf("%w: empty payload", ErrValidation)
	}
	if !json.Valid([]byte(payload)) {
		return fmt.Errorf("%w: payload is not valid JSON", ErrValidation)
	}
	return nil
}

func isOffer(payload string) bool {
	var desc webrtc.SessionDescription
	if err := json.Unmarshal([]byte(payload), &desc); err != nil {
		return false
	}
	return desc.Type == webrtc.SDPTypeOffer
}
