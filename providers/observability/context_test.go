package observability

import (
	"context"
	"testing"
)

// fakeSpan is a minimal Span for context round-trip tests.
type fakeSpan struct{ ended bool }

func (span *fakeSpan) End()                             { span.ended = true }
func (span *fakeSpan) SetAttributes(...Attribute)       {}
func (span *fakeSpan) SetStatus(StatusCode, string)     {}
func (span *fakeSpan) RecordError(error)                {}
func (span *fakeSpan) AddEvent(string, ...Attribute)    {}

var _ Span = (*fakeSpan)(nil)

// fakeProvider is a no-op Provider for context round-trip tests.
type fakeProvider struct{}

func (provider *fakeProvider) StartSpan(ctx context.Context, _ string, _ ...Attribute) (context.Context, Span) {
	return ctx, &fakeSpan{}
}
func (provider *fakeProvider) Counter(string) Counter                          { return nil }
func (provider *fakeProvider) Histogram(string) Histogram                      { return nil }
func (provider *fakeProvider) Trace(context.Context, string, ...Attribute)     {}
func (provider *fakeProvider) Debug(context.Context, string, ...Attribute)     {}
func (provider *fakeProvider) Info(context.Context, string, ...Attribute)      {}
func (provider *fakeProvider) Warn(context.Context, string, ...Attribute)      {}
func (provider *fakeProvider) Error(context.Context, string, ...Attribute)     {}

var _ Provider = (*fakeProvider)(nil)

func TestContextWithSpan_RoundTrip(testCase *testing.T) {
	span := &fakeSpan{}
	ctx := ContextWithSpan(context.Background(), span)

	retrieved := SpanFromContext(ctx)
	if retrieved == nil {
		testCase.Fatal("SpanFromContext returned nil; expected the stored span")
	}
	if retrieved != span {
		testCase.Error("SpanFromContext returned a different instance; pointer equality expected")
	}
}

func TestSpanFromContext_MissingKey(testCase *testing.T) {
	if span := SpanFromContext(context.Background()); span != nil {
		testCase.Errorf("expected nil span from empty context, got %v", span)
	}
	if span := SpanFromContext(nil); span != nil { //nolint:staticcheck // nil context is part of the contract
		testCase.Errorf("expected nil span from nil context, got %v", span)
	}
}

func TestContextWithObserver_RoundTrip(testCase *testing.T) {
	observer := &fakeProvider{}
	ctx := ContextWithObserver(context.Background(), observer)

	retrieved := ObserverFromContext(ctx)
	if retrieved == nil {
		testCase.Fatal("ObserverFromContext returned nil; expected the stored observer")
	}
	if retrieved != observer {
		testCase.Error("ObserverFromContext returned a different instance; pointer equality expected")
	}
}

func TestObserverFromContext_MissingKey(testCase *testing.T) {
	if provider := ObserverFromContext(context.Background()); provider != nil {
		testCase.Errorf("expected nil provider from empty context, got %v", provider)
	}
}

func TestError_NilError(testCase *testing.T) {
	attr := Error(nil)
	if attr.Key != "error" || attr.Value != "" {
		testCase.Errorf("expected empty error attribute, got %+v", attr)
	}
}
