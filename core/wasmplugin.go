package core

import (
	"errors"
	"fmt"

	"github.com/wasmerio/wasmer-go/wasmer"
)

// wasmHostCtx carries the running ExecutionContext and any pending bound
// violation across the wasm call boundary: a violation raised by a host
// import can't be returned as a Go error mid-call, so it is latched here
// and surfaced by Run after the instance returns.
type wasmHostCtx struct {
	mem       *wasmer.Memory
	ec        *ExecutionContext
	violation *BoundViolation
}

func (h *wasmHostCtx) read(ptr, length int32) []byte {
	data := h.mem.Data()
	out := make([]byte, length)
	copy(out, data[ptr:ptr+length])
	return out
}

// wasmPlugin is the wasm registerable code kind: a compiled wasm module
// run by wasmer, with host imports bound to the execution context.
type wasmPlugin struct {
	engine *wasmer.Engine
	module *wasmer.Module
}

// NewWasmPlugin compiles wasm bytecode once at registration time; the
// compiled module is cached since the same functionCid is expected to run
// many pulses.
func NewWasmPlugin(engine *wasmer.Engine, code []byte) (Runnable, error) {
	store := wasmer.NewStore(engine)
	mod, err := wasmer.NewModule(store, code)
	if err != nil {
		return nil, fmt.Errorf("compile wasm module: %w", err)
	}
	return &wasmPlugin{engine: engine, module: mod}, nil
}

func (p *wasmPlugin) Run(ctx *ExecutionContext, input any) (any, error) {
	store := wasmer.NewStore(p.engine)
	hctx := &wasmHostCtx{ec: ctx}
	imports := registerHostImports(store, hctx)

	instance, err := wasmer.NewInstance(p.module, imports)
	if err != nil {
		return nil, fmt.Errorf("instantiate wasm module: %w", err)
	}

	mem, err := instance.Exports.GetMemory("memory")
	if err != nil {
		return nil, errors.New("wasm module does not export memory")
	}
	hctx.mem = mem

	start, err := instance.Exports.GetFunction("_start")
	if err != nil {
		return nil, errors.New("wasm module does not export _start")
	}

	inputBytes, err := Canonicalize(input)
	if err != nil {
		return nil, err
	}
	copy(mem.Data(), inputBytes)

	// _start(inputPtr, inputLen) writes its canonical output into linear
	// memory and returns the output's byte offset; the output's length is
	// a little-endian u32 written immediately before that offset.
	result, runErr := start(int32(0), int32(len(inputBytes)))
	if hctx.violation != nil {
		return nil, hctx.violation
	}
	if runErr != nil {
		return nil, fmt.Errorf("wasm _start trapped: %w", runErr)
	}

	outPtr, ok := result.(int32)
	if !ok {
		return nil, errors.New("wasm _start must return an i32 output pointer")
	}
	if outPtr < 4 {
		return nil, errors.New("wasm output pointer leaves no room for its length header")
	}
	lenBytes := hctx.read(outPtr-4, 4)
	outLen := int32(uint32(lenBytes[0]) | uint32(lenBytes[1])<<8 | uint32(lenBytes[2])<<16 | uint32(lenBytes[3])<<24)

	outBytes := hctx.read(outPtr, outLen)
	output, err := decodeCanonical(outBytes)
	if err != nil {
		return string(outBytes), nil
	}
	return output, nil
}

// registerHostImports binds host_step/host_allocate/host_enter_branch/
// host_exit_branch to the execution context, the only channel through
// which wasm code reaches the trace and counters.
func registerHostImports(store *wasmer.Store, h *wasmHostCtx) *wasmer.ImportObject {
	imports := wasmer.NewImportObject()

	hostStep := wasmer.NewFunction(
		store,
		wasmer.NewFunctionType(
			wasmer.NewValueTypes(wasmer.ValueKind(wasmer.I32), wasmer.ValueKind(wasmer.I32)),
			wasmer.NewValueTypes(wasmer.ValueKind(wasmer.I32)),
		),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			opPtr, opLen := args[0].I32(), args[1].I32()
			op := string(h.read(opPtr, opLen))
			_, v := h.ec.Step(op, nil, nil)
			if v != nil {
				h.violation = v
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			return []wasmer.Value{wasmer.NewI32(0)}, nil
		},
	)

	hostAllocate := wasmer.NewFunction(
		store,
		wasmer.NewFunctionType(
			wasmer.NewValueTypes(wasmer.ValueKind(wasmer.I32)),
			wasmer.NewValueTypes(wasmer.ValueKind(wasmer.I32)),
		),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			bytes := uint64(args[0].I32())
			if v := h.ec.Allocate(bytes); v != nil {
				h.violation = v
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			return []wasmer.Value{wasmer.NewI32(0)}, nil
		},
	)

	hostEnterBranch := wasmer.NewFunction(
		store,
		wasmer.NewFunctionType(
			wasmer.NewValueTypes(),
			wasmer.NewValueTypes(wasmer.ValueKind(wasmer.I32)),
		),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			if v := h.ec.EnterBranch(); v != nil {
				h.violation = v
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			return []wasmer.Value{wasmer.NewI32(0)}, nil
		},
	)

	hostExitBranch := wasmer.NewFunction(
		store,
		wasmer.NewFunctionType(wasmer.NewValueTypes(), wasmer.NewValueTypes()),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			h.ec.ExitBranch()
			return []wasmer.Value{}, nil
		},
	)

	imports.Register("env", map[string]wasmer.IntoExtern{
		"host_step":         hostStep,
		"host_allocate":     hostAllocate,
		"host_enter_branch": hostEnterBranch,
		"host_exit_branch":  hostExitBranch,
	})

	return imports
}
