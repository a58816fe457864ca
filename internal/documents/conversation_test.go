package documents

import (
	"testing"
	"time"
)

func TestConversationRoundTripPreservesAbsence(t *testing.T) {
	raw, err := EncodeConversation(nil)
	if err != nil || raw != nil {
		t.Fatalf("nil log should encode to nil, got %q %v", raw, err)
	}
	turns, err := DecodeConversation(nil)
	if err != nil || turns != nil {
		t.Fatalf("empty input should decode to nil, got %v %v", turns, err)
	}

	empty, err := DecodeConversation([]byte("[]"))
	if err != nil {
		t.Fatalf("DecodeConversation: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("present empty log must stay non-nil, got %#v", empty)
	}
}

func TestDecodeConversationRejectsUnknownRole(t *testing.T) {
	if _, err := DecodeConversation([]byte(`[{"role":"system","content":"x","timestamp":""}]`)); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestNewTurnTimestampFormat(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)
	turn := NewTurn(RoleUser, "hi", at)
	if turn.Timestamp != "14:05:07 09.03.2024" {
		t.Fatalf("unexpected timestamp %q", turn.Timestamp)
	}
	raw, err := EncodeConversation([]Turn{turn})
	if err != nil {
		t.Fatalf("EncodeConversation: %v", err)
	}
	want := `[{"role":"user","content":"hi","timestamp":"14:05:07 09.03.2024"}]`
	if string(raw) != want {
		t.Fatalf("unexpected encoding %s", raw)
	}
}
