package core

import (
	"strings"
	"testing"
)

// TestCreatePulseTemplateDefaults verifies that an unset bounds field falls
// back to the documented defaults, and that the template starts pending.
func TestCreatePulseTemplateDefaults(t *testing.T) {
	p := CreatePulseTemplate(PulseOptions{
		InputCID:    CID("cid:sha256:" + zeros64),
		FunctionCID: CID("cid:sha256:" + zeros64),
		Author:      "tester",
	})
	want := DefaultBounds()
	if p.Bounds != want {
		t.Fatalf("bounds = %+v, want defaults %+v", p.Bounds, want)
	}
	if p.Status != StatusPending {
		t.Fatalf("status = %s, want pending", p.Status)
	}
	if p.LogicalTick != 0 {
		t.Fatalf("logicalTick = %d, want 0", p.LogicalTick)
	}
}

// TestChainPulseInheritsParent verifies a chained pulse increments the
// logical tick and carries forward bounds/functionCid/author unless the
// caller overrides them.
func TestChainPulseInheritsParent(t *testing.T) {
	parent := Pulse{
		PulseID:     CID("cid:sha256:" + zeros64),
		LogicalTick: 3,
		Bounds:      DefaultBounds(),
		FunctionCID: CID("cid:sha256:" + zeros64),
		Author:      "parent-author",
	}

	child := ChainPulse(parent, PulseOptions{InputCID: CID("cid:sha256:" + zeros64)})
	if child.ParentPulseID != parent.PulseID {
		t.Fatalf("parentPulseId = %s, want %s", child.ParentPulseID, parent.PulseID)
	}
	if child.LogicalTick != parent.LogicalTick+1 {
		t.Fatalf("logicalTick = %d, want %d", child.LogicalTick, parent.LogicalTick+1)
	}
	if child.Bounds != parent.Bounds {
		t.Fatalf("bounds not inherited: %+v", child.Bounds)
	}
	if child.FunctionCID != parent.FunctionCID {
		t.Fatalf("functionCid not inherited: %s", child.FunctionCID)
	}
	if child.Author != parent.Author {
		t.Fatalf("author not inherited: %s", child.Author)
	}

	overridden := ChainPulse(parent, PulseOptions{
		InputCID:    CID("cid:sha256:" + zeros64),
		FunctionCID: CID("cid:sha256:" + ones64),
		Author:      "someone-else",
	})
	if overridden.FunctionCID != CID("cid:sha256:"+ones64) {
		t.Fatalf("override of functionCid was not honored: %s", overridden.FunctionCID)
	}
	if overridden.Author != "someone-else" {
		t.Fatalf("override of author was not honored: %s", overridden.Author)
	}
}

// TestValidatePulseExhaustive verifies that validation reports every
// violation found, not just the first.
func TestValidatePulseExhaustive(t *testing.T) {
	p := Pulse{
		Bounds:    ResourceBounds{},
		Author:    "",
		OutputCID: "not-a-cid",
		Status:    "bogus",
	}
	errs := ValidatePulse(p)
	if len(errs) < 5 {
		t.Fatalf("expected at least 5 violations, got %d: %v", len(errs), errs)
	}
}

// TestValidatePulseAccepted verifies a fully-formed pulse produces no
// violations.
func TestValidatePulseAccepted(t *testing.T) {
	p := CreatePulseTemplate(PulseOptions{
		InputCID:    CID("cid:sha256:" + zeros64),
		FunctionCID: CID("cid:sha256:" + zeros64),
		Author:      "tester",
	})
	if errs := ValidatePulse(p); len(errs) != 0 {
		t.Fatalf("expected no violations, got %v", errs)
	}
}

var zeros64 = strings.Repeat("0", 64)
var ones64 = strings.Repeat("1", 64)
