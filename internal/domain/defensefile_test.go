package domain

import "testing"

func TestDeriveComplianceChecklist(t *testing.T) {
	df := &DefenseFile{}

	c := df.DeriveComplianceChecklist()
	if c.AuditReady() {
		t.Fatalf("empty defense file must not be audit-ready")
	}

	df.AppendDecision(AgentDecision{Stage: StageStrategy, Reasoning: "Existe una clara razón de negocios para este gasto."})
	c = df.DeriveComplianceChecklist()
	if !c.RazonDeNegocios {
		t.Fatalf("expected razon_de_negocios true")
	}
	if c.Trazabilidad {
		t.Fatalf("trazabilidad should require >=2 decisions, got true after 1")
	}

	df.AppendDecision(AgentDecision{Stage: StageFiscal, Reasoning: "Hay beneficio economico cuantificable y materialidad evidente."})
	c = df.DeriveComplianceChecklist()
	if !c.BeneficioEconomico || !c.Materialidad || !c.Trazabilidad {
		t.Fatalf("expected all remaining bits true, got %+v", c)
	}
	if !c.AuditReady() {
		t.Fatalf("expected audit-ready after 2 qualifying decisions")
	}
}

func TestMaterialidadFromNotificationAlone(t *testing.T) {
	df := &DefenseFile{}
	df.AppendNotification(NotificationRecord{Kind: "email", Recipient: "sponsor@example.com"})

	c := df.DeriveComplianceChecklist()
	if !c.Materialidad {
		t.Fatalf("a recorded notification must force materialidad true even with no matching decision text")
	}
}

func TestAppendDecisionVersionsPerStage(t *testing.T) {
	df := &DefenseFile{}
	df.AppendDecision(AgentDecision{Stage: StageStrategy, Decision: DecisionRequestInfo})
	df.AppendDecision(AgentDecision{Stage: StageStrategy, Decision: DecisionApprove})
	df.AppendDecision(AgentDecision{Stage: StageFiscal, Decision: DecisionApprove})

	if df.Decisions[0].Version != 1 || df.Decisions[1].Version != 2 {
		t.Fatalf("expected monotonic per-stage versions, got %d, %d", df.Decisions[0].Version, df.Decisions[1].Version)
	}
	if df.Decisions[2].Version != 1 {
		t.Fatalf("a different stage should start its own version counter, got %d", df.Decisions[2].Version)
	}
}

func TestSetFinalOnce(t *testing.T) {
	df := &DefenseFile{}
	if !df.SetFinal(DecisionApprove, "looks good") {
		t.Fatalf("first SetFinal should succeed")
	}
	if df.SetFinal(DecisionReject, "changed my mind") {
		t.Fatalf("a second SetFinal must not overwrite the first")
	}
	if *df.FinalDecision != DecisionApprove {
		t.Fatalf("final decision must remain the first one set")
	}
}
