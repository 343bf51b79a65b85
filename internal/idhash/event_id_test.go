package idhash

import "testing"

func TestComputeEventID_Deterministic(t *testing.T) {
	id1 := ComputeEventID("LARGE_TRADE", "ethereum", "0xtoken", "0xabc", 1700000000000)
	id2 := ComputeEventID("LARGE_TRADE", "ethereum", "0xtoken", "0xabc", 1700000000000)

	if id1 != id2 {
		t.Errorf("same inputs produced different IDs: %s vs %s", id1, id2)
	}
	if len(id1) != 64 {
		t.Errorf("expected 64-char hex hash, got %d chars", len(id1))
	}
}

func TestComputeEventID_TxHashDominates(t *testing.T) {
	// Same (chain, tx_hash) must collapse to one identity regardless of
	// the other fields, so duplicate ingestion is a no-op.
	id1 := ComputeEventID("LARGE_TRADE", "ethereum", "0xtoken", "0xabc", 1700000000000)
	id2 := ComputeEventID("LARGE_TRADE", "ethereum", "0xother", "0xabc", 1700009999999)

	if id1 != id2 {
		t.Error("events with identical (chain, tx_hash) should share an ID")
	}
}

func TestComputeEventID_ChainScopesTxHash(t *testing.T) {
	id1 := ComputeEventID("LARGE_TRADE", "ethereum", "0xtoken", "0xabc", 1700000000000)
	id2 := ComputeEventID("LARGE_TRADE", "base", "0xtoken", "0xabc", 1700000000000)

	if id1 == id2 {
		t.Error("tx_hash uniqueness is per chain; IDs should differ across chains")
	}
}

func TestComputeEventID_NoTxHashUsesContentKey(t *testing.T) {
	id1 := ComputeEventID("ANOMALY_SCREENER", "ethereum", "0xtoken", "", 1700000000000)
	id2 := ComputeEventID("ANOMALY_SCREENER", "ethereum", "0xtoken", "", 1700000060000)

	if id1 == id2 {
		t.Error("distinct observation timestamps should produce distinct IDs")
	}
}

func TestComputeSignalID_Deterministic(t *testing.T) {
	id1 := ComputeSignalID("run-1", "ethereum", "0xtoken")
	id2 := ComputeSignalID("run-1", "ethereum", "0xtoken")
	if id1 != id2 {
		t.Error("same inputs produced different signal IDs")
	}

	other := ComputeSignalID("run-2", "ethereum", "0xtoken")
	if id1 == other {
		t.Error("different runs should produce different signal IDs")
	}
}
