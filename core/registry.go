package core

import (
	"fmt"
	"sync"
)

// CodeKind is the closed set of registerable code variants: a built-in
// identifier, a pre-compiled wasm plugin, or an embedded-interpreter
// script handle.
type CodeKind string

const (
	KindBuiltin CodeKind = "builtin"
	KindWasm    CodeKind = "wasm"
	KindScript  CodeKind = "script"
)

// Metadata describes a registered function; it is stored alongside the
// source/bytecode in the canonical representation used to compute
// functionCid.
type Metadata struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Runnable is the common shape every registered code kind satisfies: given
// an execution context and an input value, produce an output value or an
// error. Builtins, wasm plugins, and scripts each implement this over their
// own internal representation.
type Runnable interface {
	Run(ctx *ExecutionContext, input any) (output any, err error)
}

// codeEntry is the process-local binding for one registered functionCid:
// the portable CID plus its in-memory runnable. The runnable never leaves
// the process; only the CID is portable.
type codeEntry struct {
	kind     CodeKind
	metadata Metadata
	source   string
	runnable Runnable
}

// CodeRegistry is the process-local, monotone mapping from functionCid to
// runnable. Registrations are collision-free: registering the same CID
// twice is only legal if it carries identical code.
type CodeRegistry struct {
	mu    sync.RWMutex
	store *Store
	table map[CID]codeEntry
}

// NewCodeRegistry constructs an empty registry backed by store: registering
// code also persists its canonical source representation via store so the
// functionCid is independently reproducible.
func NewCodeRegistry(store *Store) *CodeRegistry {
	return &CodeRegistry{
		store: store,
		table: make(map[CID]codeEntry),
	}
}

// canonicalCodeRecord is the value functionCid is computed over: source
// text plus metadata.
type canonicalCodeRecord struct {
	Kind     CodeKind `json:"kind"`
	Source   string   `json:"source"`
	Metadata Metadata `json:"metadata"`
}

// Register computes source's functionCid, stores the canonical record in
// the content store, and binds it to runnable in process memory.
// Registering identical code (same kind, source, and metadata) under the
// same CID a second time is a no-op; two distinct sources sharing a CID is
// a digest collision and panics.
func (r *CodeRegistry) Register(kind CodeKind, source string, meta Metadata, runnable Runnable) (CID, error) {
	record := canonicalCodeRecord{Kind: kind, Source: source, Metadata: meta}
	functionCID, err := r.store.Store(record)
	if err != nil {
		return "", fmt.Errorf("register code: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.table[functionCID]; ok {
		if existing.kind != kind || existing.source != source {
			panic(fmt.Sprintf("core: code registry collision on %s", functionCID))
		}
		return functionCID, nil
	}
	r.table[functionCID] = codeEntry{kind: kind, metadata: meta, source: source, runnable: runnable}
	return functionCID, nil
}

// Lookup returns the runnable registered under functionCID, or a
// *MissingCode error.
func (r *CodeRegistry) Lookup(functionCID CID) (Runnable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.table[functionCID]
	if !ok {
		return nil, &MissingCode{FunctionCID: functionCID}
	}
	return entry.runnable, nil
}

// Has reports whether functionCID is bound in the registry.
func (r *CodeRegistry) Has(functionCID CID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.table[functionCID]
	return ok
}
