package policy

import (
	"context"
	"fmt"

	"govgateway/internal/providers"
)

// DefaultMaxTokensCeiling caps per-request completion budgets.
const DefaultMaxTokensCeiling = 100000

// Violation describes one failed policy check.
type Violation struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Checker inspects a proxy request before dispatch. An empty slice
// means the request passes.
type Checker interface {
	Check(ctx context.Context, req *providers.ChatRequest) []Violation
}

// MaxTokensChecker rejects requests whose max_tokens exceeds a ceiling.
type MaxTokensChecker struct {
	Ceiling int
}

// NewMaxTokensChecker creates a checker with the given ceiling, falling
// back to the default when ceiling is not positive.
func NewMaxTokensChecker(ceiling int) *MaxTokensChecker {
	if ceiling <= 0 {
		ceiling = DefaultMaxTokensCeiling
	}
	return &MaxTokensChecker{Ceiling: ceiling}
}

// Check reports a violation when the request asks for more completion
// tokens than the ceiling allows. Requests without max_tokens pass.
func (c *MaxTokensChecker) Check(_ context.Context, req *providers.ChatRequest) []Violation {
	if req.MaxTokens == nil || *req.MaxTokens <= c.Ceiling {
		return nil
	}
	return []Violation{{
		Rule:    "max_tokens",
		Message: fmt.Sprintf("max_tokens %d exceeds the allowed ceiling of %d", *req.MaxTokens, c.Ceiling),
	}}
}

// Chain runs several checkers in order and concatenates their findings.
type Chain []Checker

func (ch Chain) Check(ctx context.Context, req *providers.ChatRequest) []Violation {
	var out []Violation
	for _, c := range ch {
		out = append(out, c.Check(ctx, req)...)
	}
	return out
}
