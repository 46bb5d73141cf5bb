package core

import (
	"fmt"
)

// ProofStep is one sampled trace step plus its Merkle authentication path,
// as carried in a full (non-compact) proof artifact.
type ProofStep struct {
	StepIndex int               `json:"stepIndex"`
	Step      Step              `json:"step"`
	Proof     []MerkleProofStep `json:"proof"`
}

// ExecutionSummary mirrors the counters recorded on a trace, duplicated
// into the proof artifact so a verifier need not separately fetch the
// trace to check bound compliance.
type ExecutionSummary struct {
	TotalSteps        uint64 `json:"totalSteps"`
	PeakMemory        uint64 `json:"peakMemory"`
	MaxBranchDepth    uint64 `json:"maxBranchDepth"`
	DeterministicSeed CID    `json:"deterministicSeed"`
}

// Proof is the full proof-of-execution artifact: commitments over the
// pulse's inputs and outputs, a Merkle root over its trace steps, and a
// sampled set of authenticated steps.
type Proof struct {
	ProofID          CID              `json:"proofId,omitempty"`
	PulseID          CID              `json:"pulseId"`
	InputCommitment  CID              `json:"inputCommitment"`
	OutputCommitment CID              `json:"outputCommitment"`
	ExecutionSummary ExecutionSummary `json:"executionSummary"`
	TraceMerkleRoot  string           `json:"traceMerkleRoot"`
	TraceMerkleDepth int              `json:"traceMerkleDepth"`
	TraceProofs      []ProofStep      `json:"traceProofs,omitempty"`
	VerificationData VerificationData `json:"verificationData"`
}

// VerificationData carries the two top-level checks a verifier performs
// independently of the sampled Merkle paths.
type VerificationData struct {
	BoundsRespected       bool `json:"boundsRespected"`
	InputOutputConsistent bool `json:"inputOutputConsistent"`
}

// CompactProof omits the Merkle paths, carrying only commitments, counters,
// and the root.
type CompactProof struct {
	ProofID          CID              `json:"proofId,omitempty"`
	PulseID          CID              `json:"pulseId"`
	InputCommitment  CID              `json:"inputCommitment"`
	OutputCommitment CID              `json:"outputCommitment"`
	ExecutionSummary ExecutionSummary `json:"executionSummary"`
	TraceMerkleRoot  string           `json:"traceMerkleRoot"`
	VerificationData VerificationData `json:"verificationData"`
}

// sampledIndices returns the first and last step indices, plus additional
// indices at every ceil(n/5) interval for traces longer than 10 steps.
func sampledIndices(n int) []int {
	if n == 0 {
		return nil
	}
	seen := make(map[int]struct{})
	var out []int
	add := func(i int) {
		if i < 0 || i >= n {
			return
		}
		if _, ok := seen[i]; ok {
			return
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}

	add(0)
	add(n - 1)
	if n > 10 {
		interval := (n + 4) / 5 // ceil(n/5)
		for i := interval; i < n; i += interval {
			add(i)
		}
	}
	return out
}

// stepLeafBytes is the canonical byte form of {tick, operation,
// digest(args), digest(result)} for one trace step, the Merkle leaf
// preimage. Commitments always use sha256, never the djb2 fallback.
func stepLeafBytes(step Step) ([]byte, error) {
	argsDigest, err := DigestCID(step.Args, AlgoSHA256)
	if err != nil {
		return nil, err
	}
	resultDigest, err := DigestCID(step.Result, AlgoSHA256)
	if err != nil {
		return nil, err
	}
	return Canonicalize(map[string]any{
		"tick":      step.Tick,
		"operation": step.Operation,
		"args":      string(argsDigest),
		"result":    string(resultDigest),
	})
}

// GenerateProof builds a full proof-of-execution artifact over a finalized
// pulse and its trace, and persists it via store; the returned Proof's
// ProofID is its CID.
func GenerateProof(store *Store, pulse Pulse, trace Trace) (Proof, error) {
	if pulse.Status != StatusCompleted && pulse.Status != StatusFailed && pulse.Status != StatusViolated {
		return Proof{}, fmt.Errorf("proof: pulse %s is not terminal", pulse.PulseID)
	}

	inputCommitment, err := DigestCID(map[string]any{
		"inputCid":    string(pulse.InputCID),
		"functionCid": string(pulse.FunctionCID),
		"bounds":      pulse.Bounds,
	}, AlgoSHA256)
	if err != nil {
		return Proof{}, err
	}
	outputCommitment, err := DigestCID(map[string]any{
		"outputCid": string(pulse.OutputCID),
		"status":    string(pulse.Status),
	}, AlgoSHA256)
	if err != nil {
		return Proof{}, err
	}

	leaves := make([][]byte, len(trace.Steps))
	for i, s := range trace.Steps {
		lb, err := stepLeafBytes(s)
		if err != nil {
			return Proof{}, err
		}
		leaves[i] = lb
	}

	var root [32]byte
	var depth int
	var traceProofs []ProofStep
	if len(leaves) > 0 {
		levels, err := BuildMerkleTree(leaves)
		if err != nil {
			return Proof{}, err
		}
		root = levels[len(levels)-1][0]
		depth = len(levels) - 1

		for _, idx := range sampledIndices(len(leaves)) {
			path, _, err := MerkleProof(leaves, uint32(idx))
			if err != nil {
				return Proof{}, err
			}
			traceProofs = append(traceProofs, ProofStep{
				StepIndex: idx,
				Step:      trace.Steps[idx],
				Proof:     path,
			})
		}
	}

	boundsRespected := trace.TotalSteps <= pulse.Bounds.MaxSteps &&
		trace.PeakMemory <= pulse.Bounds.MaxMemoryBytes &&
		trace.MaxBranchDepth <= pulse.Bounds.MaxBranchDepth

	proof := Proof{
		PulseID:          pulse.PulseID,
		InputCommitment:  inputCommitment,
		OutputCommitment: outputCommitment,
		ExecutionSummary: ExecutionSummary{
			TotalSteps:        trace.TotalSteps,
			PeakMemory:        trace.PeakMemory,
			MaxBranchDepth:    trace.MaxBranchDepth,
			DeterministicSeed: trace.DeterministicSeed,
		},
		TraceMerkleRoot:  fmt.Sprintf("%x", root),
		TraceMerkleDepth: depth,
		TraceProofs:      traceProofs,
		VerificationData: VerificationData{
			BoundsRespected:       boundsRespected,
			InputOutputConsistent: pulse.Status != StatusCompleted || pulse.OutputCID != "",
		},
	}

	proofID, err := store.Store(proof)
	if err != nil {
		return Proof{}, err
	}
	proof.ProofID = proofID
	return proof, nil
}

// ToCompact drops the Merkle paths, carrying only commitments, counters,
// and the root.
func (p Proof) ToCompact() CompactProof {
	return CompactProof{
		ProofID:          p.ProofID,
		PulseID:          p.PulseID,
		InputCommitment:  p.InputCommitment,
		OutputCommitment: p.OutputCommitment,
		ExecutionSummary: p.ExecutionSummary,
		TraceMerkleRoot:  p.TraceMerkleRoot,
		VerificationData: p.VerificationData,
	}
}
