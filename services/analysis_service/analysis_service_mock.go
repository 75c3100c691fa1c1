package analysis_service

import (
	"context"
)

type MockAnalysisService struct {
	AnalyzeFunc     func(ctx context.Context, text, country, contractType string) (*Report, error)
	QuickAnchorFunc func(ctx context.Context, text, country, contractType string) (*Anchor, error)
	ChatFunc        func(ctx context.Context, contractText string, history []ChatMessage, question string) (string, error)
	AnalyzeCalls    int
	AnchorCalls     int
	ChatCalls       int
}

func (m *MockAnalysisService) Analyze(ctx context.Context, text, country, contractType string) (*Report, error) {
	m.AnalyzeCalls++
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, text, country, contractType)
	}
	return &Report{Score: 85, Verdict: "Market-Standard"}, nil
}

func (m *MockAnalysisService) QuickAnchor(ctx context.Context, text, country, contractType string) (*Anchor, error) {
	m.AnchorCalls++
	if m.QuickAnchorFunc != nil {
		return m.QuickAnchorFunc(ctx, text, country, contractType)
	}
	return &Anchor{RiskAnchor: "Standard agreement detected.", Verdict: "Standard"}, nil
}

func (m *MockAnalysisService) Chat(ctx context.Context, contractText string, history []ChatMessage, question string) (string, error) {
	m.ChatCalls++
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, contractText, history, question)
	}
	return "mock answer", nil
}
