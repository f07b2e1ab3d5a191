// Package manager loads the configured models and dispatches inference
// requests to them. It is structured into small files by concern:
//
//   - manager.go: core Manager type, phase and simple getters.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: phases, load stages, LoadOutcome and LoadReport.
//   - table.go: the immutable RoutingTable published after loading.
//   - loader.go: LoadAll, the resolve-then-construct pipeline with per-model isolation.
//   - dispatch.go: Infer and ListAvailable, the request path.
//   - errors.go: error types and helpers (IsModelNotFound, IsDependencyUnavailable).
//   - events.go, eventpub_memory.go: lifecycle events.
//   - metrics.go: Prometheus collectors for loading and inference.
//   - status_report.go: Status and history records.
//
// Build tags and runtimes:
//
//   - In-process llama:
//     Uses the go-llama.cpp adapter. Enabled with `-tags=llama`.
//     Files: adapter_llama.go, llama_cgo.go (linker rpath hints).
//     A no-CGO stub exists when the tag is not set: adapter_llama_stub.go.
//
//   - OpenAI-compatible server (vLLM, llama-server):
//     adapter_openai.go, always built.
//
// The routing table is built once by LoadAll and never mutated afterwards.
// Readers load it through an atomic pointer and take no locks.
package manager
