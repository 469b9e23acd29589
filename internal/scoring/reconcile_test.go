package scoring

import (
	"testing"

	"github.com/mlorente/cv-screener/internal/requirements"
)

func TestReconcileCombinesBothPhases(t *testing.T) {
	reqs := []requirements.Requirement{
		req("r1", "Python", requirements.KindMandatory),
		req("r2", "LangChain", requirements.KindOptional),
	}

	final := Reconcile(reqs,
		[]requirements.Requirement{reqs[0]},
		[]requirements.Requirement{reqs[1]},
	)

	if final.Score != 100.0 {
		t.Fatalf("expected score 100.0, got %v", final.Score)
	}
	if final.Discarded {
		t.Fatal("expected candidate not discarded")
	}
}

func TestReconcileDiscardsOnUnresolvedMandatory(t *testing.T) {
	reqs := []requirements.Requirement{
		req("r1", "Python", requirements.KindMandatory),
		req("r2", "Docker", requirements.KindOptional),
	}

	final := Reconcile(reqs, nil, []requirements.Requirement{reqs[1]})

	if !final.Discarded {
		t.Fatal("expected discard for unresolved mandatory requirement")
	}
	if final.Score != 0 {
		t.Fatalf("discarded evaluation must score 0, got %v", final.Score)
	}
}

func TestReconcileKeepsGroupSemantics(t *testing.T) {
	reqs := []requirements.Requirement{
		orReq("r1", "CS degree", requirements.KindMandatory, "education"),
		orReq("r2", "Master in AI", requirements.KindMandatory, "education"),
	}

	// Only one OR alternative confirmed during the interview: the group passes.
	final := Reconcile(reqs, nil, []requirements.Requirement{reqs[1]})

	if final.Discarded {
		t.Fatal("satisfied OR group must not discard on reconciliation")
	}
	if final.Score != 100.0 {
		t.Fatalf("expected score 100.0, got %v", final.Score)
	}
}
