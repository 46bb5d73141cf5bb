package core

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Verification is the result of a replay-based determinism check.
type Verification struct {
	Valid          bool
	OutputMatch    bool
	StepsMatch     bool
	ReplayOutput   any
	ExpectedOutput any
	ReplaySteps    uint64
	ExpectedSteps  uint64
	Inconclusive   bool
	Reason         string
}

// Verify re-executes pulse on engine and compares the replay's output and
// step sequence to the stored record. Both must match for Valid: equal
// canonical output bytes, and an equal step sequence (not merely an equal
// step count). ReplaySteps/ExpectedSteps carry the counts so a caller can
// diff the sequences when StepsMatch is false.
func Verify(engine *Engine, store *Store, pulse Pulse) Verification {
	if !engine.registry.Has(pulse.FunctionCID) {
		return Verification{Inconclusive: true, Reason: "functionCid not registered"}
	}

	expectedOutputBytes, hasOutput := store.Fetch(pulse.OutputCID)
	var expectedOutput any
	if hasOutput {
		expectedOutput, _ = decodeCanonical(expectedOutputBytes)
	}

	var expectedSteps uint64
	var expectedStepSeq any
	if raw, ok := store.Fetch(pulse.TraceCID); ok {
		if decoded, err := decodeCanonical(raw); err == nil {
			if m, ok := decoded.(map[string]any); ok {
				if n, ok := m["totalSteps"]; ok {
					if num, err := parseIntLike(n, "totalSteps"); err == nil {
						expectedSteps = uint64(num)
					}
				}
				expectedStepSeq = m["steps"]
			}
		}
	}

	fresh := pulse
	fresh.OutputCID = ""
	fresh.TraceCID = ""
	fresh.PulseID = ""
	fresh.Signature = ""
	fresh.Status = StatusPending

	result := engine.Execute(fresh)
	if result.Error != nil && result.Pulse.Status != StatusCompleted {
		return Verification{
			Inconclusive:  true,
			Reason:        fmt.Sprintf("replay failed: %v", result.Error),
			ReplaySteps:   result.Trace.TotalSteps,
			ExpectedSteps: expectedSteps,
		}
	}

	replayCanonical, _ := Canonicalize(result.Output)
	expectedCanonical, _ := Canonicalize(expectedOutput)
	outputMatch := string(replayCanonical) == string(expectedCanonical)

	replaySeq, _ := Canonicalize(result.Trace.Steps)
	expectedSeq, _ := Canonicalize(expectedStepSeq)
	stepsMatch := result.Trace.TotalSteps == expectedSteps && string(replaySeq) == string(expectedSeq)

	return Verification{
		Valid:          outputMatch && stepsMatch,
		OutputMatch:    outputMatch,
		StepsMatch:     stepsMatch,
		ReplayOutput:   result.Output,
		ExpectedOutput: expectedOutput,
		ReplaySteps:    result.Trace.TotalSteps,
		ExpectedSteps:  expectedSteps,
	}
}

// Replay accepts either a pulseId CID, resolving the finalized record from
// store first, or an already-loaded Pulse record, then performs the same
// replay-based determinism check as Verify.
func Replay(engine *Engine, store *Store, pulseIDOrRecord any) Verification {
	switch v := pulseIDOrRecord.(type) {
	case Pulse:
		return Verify(engine, store, v)
	case CID:
		return replayByID(engine, store, v)
	case string:
		return replayByID(engine, store, CID(v))
	default:
		return Verification{Inconclusive: true, Reason: fmt.Sprintf("replay: unsupported argument type %T", pulseIDOrRecord)}
	}
}

func replayByID(engine *Engine, store *Store, pulseID CID) Verification {
	raw, ok := store.Fetch(pulseID)
	if !ok {
		return Verification{Inconclusive: true, Reason: fmt.Sprintf("replay: pulseId %s not found in store", pulseID)}
	}
	var pulse Pulse
	if err := json.Unmarshal(raw, &pulse); err != nil {
		return Verification{Inconclusive: true, Reason: fmt.Sprintf("replay: pulseId %s does not decode as a pulse record: %v", pulseID, err)}
	}
	pulse.PulseID = pulseID
	return Verify(engine, store, pulse)
}

// VerifyBatch runs Verify over pulses concurrently, bounded to a fixed
// concurrency limit, for auditing a causal chain in one call.
func VerifyBatch(engine *Engine, store *Store, pulses []Pulse) []Verification {
	results := make([]Verification, len(pulses))
	var g errgroup.Group
	g.SetLimit(8)
	for i, p := range pulses {
		i, p := i, p
		g.Go(func() error {
			results[i] = Verify(engine, store, p)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// ProofVerification reports the independent checks performed against a
// proof artifact, plus their conjunction.
type ProofVerification struct {
	Valid                 bool
	InputCommitmentValid  bool
	OutputCommitmentValid bool
	SampledPathsValid     bool
	BoundsRespected       bool
	PulseIDMatches        bool
}

// VerifyProof checks, independently: the input and output commitments
// recompute to the same digests; every sampled step's authentication path
// reconstructs the stored root; boundsRespected is true; and the pulse's
// pulseId matches the proof's. Overall validity is their conjunction.
func VerifyProof(pulse Pulse, proof Proof) (ProofVerification, error) {
	expectedInput, err := DigestCID(map[string]any{
		"inputCid":    string(pulse.InputCID),
		"functionCid": string(pulse.FunctionCID),
		"bounds":      pulse.Bounds,
	}, AlgoSHA256)
	if err != nil {
		return ProofVerification{}, err
	}
	expectedOutput, err := DigestCID(map[string]any{
		"outputCid": string(pulse.OutputCID),
		"status":    string(pulse.Status),
	}, AlgoSHA256)
	if err != nil {
		return ProofVerification{}, err
	}

	sampledPathsValid := true
	rootBytes, err := hex.DecodeString(proof.TraceMerkleRoot)
	if err != nil || len(rootBytes) != 32 {
		sampledPathsValid = false
	} else {
		var root [32]byte
		copy(root[:], rootBytes)
		totalLeaves := int(proof.ExecutionSummary.TotalSteps)
		for _, ts := range proof.TraceProofs {
			leaf, err := stepLeafBytes(ts.Step)
			if err != nil {
				return ProofVerification{}, err
			}
			if !VerifyMerklePath(root, leaf, ts.Proof, uint32(ts.StepIndex), totalLeaves) {
				sampledPathsValid = false
				break
			}
		}
	}

	v := ProofVerification{
		InputCommitmentValid:  expectedInput == proof.InputCommitment,
		OutputCommitmentValid: expectedOutput == proof.OutputCommitment,
		SampledPathsValid:     sampledPathsValid,
		BoundsRespected:       proof.VerificationData.BoundsRespected,
		PulseIDMatches:        pulse.PulseID == proof.PulseID,
	}
	v.Valid = v.InputCommitmentValid && v.OutputCommitmentValid && v.SampledPathsValid && v.BoundsRespected && v.PulseIDMatches
	return v, nil
}
