package payments

import (
	"context"
	"errors"
	"strings"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

// OmiseProvider implements Provider on top of omise-go card charges created
// with capture disabled.
type OmiseProvider struct {
	client *omise.Client
}

// NewOmiseProvider builds a client from the public/secret key pair.
func NewOmiseProvider(publicKey, secretKey string) (*OmiseProvider, error) {
	if strings.TrimSpace(publicKey) == "" || strings.TrimSpace(secretKey) == "" {
		return nil, errors.New("omise: public and secret keys are required")
	}
	c, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, err
	}
	c.SetDebug(false)
	return &OmiseProvider{client: c}, nil
}

// Name implements Provider.
func (p *OmiseProvider) Name() string { return ProviderOmise }

// Authorize creates an uncaptured charge for the card token.
func (p *OmiseProvider) Authorize(_ context.Context, req AuthorizeRequest) (Intent, error) {
	if req.AmountOre <= 0 || req.CardToken == "" || req.Currency == "" {
		return Intent{}, errors.New("omise: invalid authorize params")
	}
	meta := map[string]any{"booking_id": req.BookingID}
	for k, v := range req.Metadata {
		meta[k] = v
	}
	ch := &omise.Charge{}
	op := &operations.CreateCharge{
		Amount:      req.AmountOre,
		Currency:    strings.ToLower(req.Currency),
		Card:        req.CardToken,
		DontCapture: true,
		Metadata:    meta,
	}
	if err := p.client.Do(ch, op); err != nil {
		return Intent{}, err
	}
	if string(ch.Status) == "failed" {
		de := &DeclineError{Code: "failed"}
		if ch.FailureCode != nil {
			de.Code = *ch.FailureCode
		}
		if ch.FailureMessage != nil {
			de.Message = *ch.FailureMessage
		}
		return Intent{}, de
	}
	return Intent{ID: ch.ID, Status: string(ch.Status)}, nil
}

// Capture captures the full authorization and refunds the difference when
// amountOre is lower than the authorized amount.
func (p *OmiseProvider) Capture(ctx context.Context, intentID string, amountOre int64) error {
	ch := &omise.Charge{}
	if err := p.client.Do(ch, &operations.CaptureCharge{ChargeID: intentID}); err != nil {
		return err
	}
	if string(ch.Status) == "failed" {
		return ErrInvalidState
	}
	if rest := ch.Amount - amountOre; amountOre > 0 && rest > 0 {
		_, err := p.Refund(ctx, intentID, rest, map[string]any{"reason": "partial_capture"})
		return err
	}
	return nil
}

// Void reverses an uncaptured charge.
func (p *OmiseProvider) Void(_ context.Context, intentID string) error {
	ch := &omise.Charge{}
	return p.client.Do(ch, &operations.ReverseCharge{ChargeID: intentID})
}

// Refund creates a refund on a captured charge.
func (p *OmiseProvider) Refund(_ context.Context, intentID string, amountOre int64, metadata map[string]any) (string, error) {
	if amountOre <= 0 {
		return "", ErrInvalidState
	}
	r := &omise.Refund{}
	op := &operations.CreateRefund{
		ChargeID: intentID,
		Amount:   amountOre,
		Metadata: metadata,
	}
	if err := p.client.Do(r, op); err != nil {
		return "", err
	}
	return r.ID, nil
}
