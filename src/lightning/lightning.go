package lightning

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nostrlabs/nostroracle/src/types"
)

// Service issues proportional rewards (zaps) for high-scoring results.
// Invoice generation is mocked; the zap request record is real and signed.
type Service struct {
	address    string
	baseAmount int64
	threshold  int
	secret     []byte
}

func New(address string, baseAmount int64, threshold int, secret []byte) *Service {
	if address == "" {
		address = "nostroracle@getalby.com"
	}
	if baseAmount <= 0 {
		baseAmount = 1000
	}
	if threshold <= 0 {
		threshold = 80
	}
	return &Service{
		address:    address,
		baseAmount: baseAmount,
		threshold:  threshold,
		secret:     secret,
	}
}

// Threshold is the exclusive minimum score for a reward.
func (s *Service) Threshold() int { return s.threshold }

// ProcessZap issues a reward when the score clears the quality threshold.
// The amount is proportional: floor(score/100 x base amount).
func (s *Service) ProcessZap(ctx context.Context, eventID, authorPubkey string, score int) (*types.ZapResult, error) {
	if score <= s.threshold {
		return &types.ZapResult{
			Success:   false,
			Reason:    "content score too low for zap",
			Score:     score,
			Threshold: s.threshold,
		}, nil
	}

	amount := int64(score) * s.baseAmount / 100

	invoice, err := s.generateInvoice(ctx, amount,
		fmt.Sprintf("NostrOracle tip for high-quality content (score: %d)", score))
	if err != nil {
		return nil, fmt.Errorf("generate invoice: %w", err)
	}

	signed, err := s.signZapRequest(eventID, authorPubkey, amount*1000)
	if err != nil {
		return nil, fmt.Errorf("sign zap request: %w", err)
	}

	log.Printf("lightning: zapped %d sats for event %s", amount, eventID)
	return &types.ZapResult{
		Success:    true,
		AmountSats: amount,
		Invoice:    invoice,
		ZapRequest: signed,
		Message:    fmt.Sprintf("Zapped %d sats for high-quality content", amount),
	}, nil
}

// generateInvoice is a mock; a production deployment would talk to LND/CLN
// or a Lightning service provider here.
func (s *Service) generateInvoice(_ context.Context, amount int64, description string) (string, error) {
	log.Printf("lightning: mock invoice for %d sats: %s", amount, description)
	return fmt.Sprintf("lnbc%du1p...mock_invoice_%s", amount, uuid.NewString()[:8]), nil
}

// signZapRequest produces the signed reward-request record referencing the
// event and the content author. Amount is in millisats.
func (s *Service) signZapRequest(eventID, authorPubkey string, amountMsat int64) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":    "nostroracle",
		"event":  eventID,
		"author": authorPubkey,
		"amount": amountMsat,
		"iat":    now.Unix(),
		"exp":    now.Add(time.Hour).Unix(),
	})
	return token.SignedString(s.secret)
}

// WalletInfo describes the reward-rail configuration.
func (s *Service) WalletInfo() map[string]interface{} {
	return map[string]interface{}{
		"address":            s.address,
		"default_zap_amount": s.baseAmount,
		"supported_features": []string{
			"NIP-57 Zaps",
			"Automated tipping",
			"Quality-based rewards",
		},
		"zap_threshold": s.threshold,
		"status":        "mock_mode",
	}
}
