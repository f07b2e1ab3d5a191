package manager

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewWithConfig_AdapterSelectionAndDefaults(t *testing.T) {
	oa := NewOpenAIAdapter("http://127.0.0.1:8000", "", time.Second, time.Second, zerolog.Nop())
	m := NewWithConfig(ManagerConfig{Adapter: oa})
	if _, ok := m.adapter.(*openAIAdapter); !ok {
		t.Fatalf("expected configured adapter to be kept, got %T", m.adapter)
	}
	m2 := NewWithConfig(ManagerConfig{LlamaCtx: 4096, LlamaThreads: 8})
	la, ok := m2.adapter.(*llamaAdapter)
	if !ok {
		t.Fatalf("expected llama adapter, got %T", m2.adapter)
	}
	if la.ctxSize != 4096 || la.threads != 8 {
		t.Fatalf("llama settings not passed through: %+v", la)
	}
}

func TestNewWithConfig_KeepsExplicitValues(t *testing.T) {
	l := zerolog.Nop()
	pub := NewMemoryPublisher()
	m := NewWithConfig(ManagerConfig{
		Sampling:        SamplingConfig{MaxTokens: 32, TopK: 40},
		LoadConcurrency: 4,
		Publisher:       pub,
		Logger:          &l,
	})
	if m.Sampling().MaxTokens != 32 || m.Sampling().TopK != 40 {
		t.Fatalf("sampling overwritten: %+v", m.Sampling())
	}
	if m.concurrency != 4 {
		t.Fatalf("concurrency overwritten: %d", m.concurrency)
	}
	if m.pub != pub {
		t.Fatalf("publisher not wired")
	}
}
