package payments

import (
	"context"
	"fmt"
	"sync"
)

// DeclinedToken is the card token FakeProvider refuses to authorize.
const DeclinedToken = "tok_fail"

// Call records one FakeProvider operation.
type Call struct {
	Op        string
	IntentID  string
	AmountOre int64
}

type fakeIntent struct {
	authorized int64
	captured   int64
	refunded   int64
	voided     bool
}

// FakeProvider is an in-memory Provider. It is safe for concurrent use.
//
// Authorizations with DeclinedToken fail with a DeclineError. Set FailNext
// to make the next call of an operation ("authorize", "capture", "void",
// "refund") return the given error.
type FakeProvider struct {
	mu       sync.Mutex
	seq      int
	intents  map[string]*fakeIntent
	calls    []Call
	FailNext map[string]error
}

// NewFakeProvider returns an empty FakeProvider.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		intents:  make(map[string]*fakeIntent),
		FailNext: make(map[string]error),
	}
}

// Name implements Provider.
func (f *FakeProvider) Name() string { return ProviderFake }

// Calls returns a copy of the recorded operations.
func (f *FakeProvider) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Captured returns the captured minus refunded amount of an intent.
func (f *FakeProvider) Captured(intentID string) (captured, refunded int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if in, ok := f.intents[intentID]; ok {
		return in.captured, in.refunded
	}
	return 0, 0
}

func (f *FakeProvider) record(op, id string, amount int64) error {
	f.calls = append(f.calls, Call{Op: op, IntentID: id, AmountOre: amount})
	if err, ok := f.FailNext[op]; ok && err != nil {
		delete(f.FailNext, op)
		return err
	}
	return nil
}

// Authorize implements Provider.
func (f *FakeProvider) Authorize(_ context.Context, req AuthorizeRequest) (Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("authorize", "", req.AmountOre); err != nil {
		return Intent{}, err
	}
	if req.CardToken == DeclinedToken {
		return Intent{}, &DeclineError{Code: "insufficient_fund", Message: "test card declined"}
	}
	if req.AmountOre <= 0 {
		return Intent{}, ErrInvalidState
	}
	f.seq++
	id := fmt.Sprintf("fake_%06d", f.seq)
	f.intents[id] = &fakeIntent{authorized: req.AmountOre}
	return Intent{ID: id, Status: "pending"}, nil
}

// Capture implements Provider.
func (f *FakeProvider) Capture(_ context.Context, intentID string, amountOre int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("capture", intentID, amountOre); err != nil {
		return err
	}
	in, ok := f.intents[intentID]
	if !ok {
		return ErrUnknownIntent
	}
	if in.voided || in.captured > 0 || amountOre <= 0 || amountOre > in.authorized {
		return ErrInvalidState
	}
	in.captured = amountOre
	return nil
}

// Void implements Provider.
func (f *FakeProvider) Void(_ context.Context, intentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("void", intentID, 0); err != nil {
		return err
	}
	in, ok := f.intents[intentID]
	if !ok {
		return ErrUnknownIntent
	}
	if in.captured > 0 {
		return ErrInvalidState
	}
	in.voided = true
	return nil
}

// Refund implements Provider.
func (f *FakeProvider) Refund(_ context.Context, intentID string, amountOre int64, _ map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("refund", intentID, amountOre); err != nil {
		return "", err
	}
	in, ok := f.intents[intentID]
	if !ok {
		return "", ErrUnknownIntent
	}
	if amountOre <= 0 || in.refunded+amountOre > in.captured {
		return "", ErrInvalidState
	}
	in.refunded += amountOre
	f.seq++
	return fmt.Sprintf("rfnd_%06d", f.seq), nil
}
