package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// MockGateway simulates a bank transfer rail for local development and tests.
// It introduces a small random delay and fails ~10% of the time.
type MockGateway struct {
	// FailureRate is the probability of failure (0.0 to 1.0). Default: 0.1 (10%)
	FailureRate float64
	// Delay caps the simulated network latency. Zero means no delay.
	Delay time.Duration
}

// NewMockGateway creates a new MockGateway with default settings.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		FailureRate: 0.1,
		Delay:       2 * time.Second,
	}
}

// SendTransfer simulates sending a transfer to a bank. It sleeps up to Delay
// to simulate network latency, then randomly fails based on the FailureRate.
// Returns a fake reference ID on success.
func (g *MockGateway) SendTransfer(ctx context.Context, bankName, accountNumber, accountName string, amount int64) (string, error) {
	if g.Delay > 0 {
		jitter := time.Duration(rand.Int63n(int64(g.Delay)))
		select {
		case <-time.After(jitter):
		case <-ctx.Done():
			return "", fmt.Errorf("bank transfer canceled: %w", ctx.Err())
		}
	}

	if rand.Float64() < g.FailureRate {
		return "", fmt.Errorf("bank rail temporarily unavailable")
	}

	ref := fmt.Sprintf("BANK-%s-%05d", time.Now().Format("20060102-150405"), rand.Intn(100000))
	return ref, nil
}
