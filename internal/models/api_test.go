package models

import (
	"testing"
)

func TestAskRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     *AskRequest
		wantErr bool
	}{
		{"valid", &AskRequest{Lang: "EN", Query: "What is ihram?", SessionID: "s1"}, false},
		{"lowercase lang accepted", &AskRequest{Lang: "fr", Query: "x", SessionID: "s1"}, false},
		{"unknown lang", &AskRequest{Lang: "DE", Query: "x", SessionID: "s1"}, true},
		{"missing session", &AskRequest{Lang: "EN", Query: "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAskRequest_ToQueryIgnoresChoiceUnlessClarified(t *testing.T) {
	req := &AskRequest{Lang: LangEN, Query: "ihram", SessionID: "s", ClarifierChoice: "Miqat crossing"}
	if q := req.ToQuery(); q.Clarified() {
		t.Error("choice without clarified flag should be ignored")
	}
	req.Clarified = true
	q := req.ToQuery()
	if !q.Clarified() || q.ClarifierChoice != "Miqat crossing" || q.Mode != ModeAsk {
		t.Errorf("unexpected query: %+v", q)
	}
}

func TestChatRequest_ToQueryUsesLatestUserMessage(t *testing.T) {
	req := &ChatRequest{Lang: LangEN, SessionID: "s", Messages: []ChatMessage{
		{Role: RoleUser, Content: "ihram"},
		{Role: RoleAssistant, Content: "Do you mean ihram rules?"},
		{Role: RoleUser, Content: "rules"},
	}}
	if err := req.Validate(); err != nil {
		t.Fatal(err)
	}
	q := req.ToQuery()
	if q.Text != "rules" {
		t.Errorf("Text = %q, want rules", q.Text)
	}
	if q.FirstTurn() {
		t.Error("three messages is not a first turn")
	}
	if got := len(q.UserMessages()); got != 2 {
		t.Errorf("UserMessages = %d, want 2", got)
	}
}

func TestChatRequest_ValidateRejectsUnknownRole(t *testing.T) {
	req := &ChatRequest{Lang: LangEN, Messages: []ChatMessage{{Role: "system", Content: "x"}}}
	if err := req.Validate(); err == nil {
		t.Error("expected error for system role")
	}
}

func TestRouteDecision_Normalize(t *testing.T) {
	d := &RouteDecision{Route: RouteRetrievalGrounded, Confidence: 1.7}
	d.Normalize()
	if d.Route != RouteErrorFallback {
		t.Errorf("source-less grounded route should downgrade, got %s", d.Route)
	}
	if d.Confidence != 1 {
		t.Errorf("confidence not clamped: %v", d.Confidence)
	}
	if d.Sources == nil || d.Chips == nil {
		t.Error("slices should be non-nil after Normalize")
	}
}

func TestRoute_Label(t *testing.T) {
	tests := map[Route]string{
		RouteOffline:           "offline",
		RouteRetrievalGrounded: "rag",
		RouteUngroundedGeneral: "general",
		RouteClarification:     "fallback",
		RouteScopeRejected:     "fallback",
		RouteErrorFallback:     "fallback",
	}
	for route, want := range tests {
		if got := route.Label(); got != want {
			t.Errorf("%s.Label() = %s, want %s", route, got, want)
		}
	}
}

func TestSafeAskResponse(t *testing.T) {
	resp := SafeAskResponse()
	if resp.RouteUsed != "fallback" || resp.Confidence != 0 {
		t.Errorf("unexpected safe response: %+v", resp)
	}
	if resp.ErrorCode == nil || *resp.ErrorCode != ErrAsk {
		t.Error("safe response should carry ask_error")
	}
	if resp.Sources == nil || resp.Answer.Steps == nil {
		t.Error("safe response slices should be non-nil")
	}
}

func TestParseLang(t *testing.T) {
	if l, ok := ParseLang("ar"); !ok || l != LangAR {
		t.Errorf("ParseLang(ar) = %s, %v", l, ok)
	}
	if l, ok := ParseLang("xx"); ok || l != DefaultLang {
		t.Errorf("ParseLang(xx) = %s, %v", l, ok)
	}
}
