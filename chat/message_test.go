package chat

import "testing"

func TestNewMessage_RoleValidation(t *testing.T) {
	tests := []struct {
		role    Role
		wantErr bool
	}{
		{RoleUser, false},
		{RoleAssistant, false},
		{RoleSystem, false},
		{Role("response"), true},
		{Role("moderator"), true},
		{Role("USER"), true},
		{Role(""), true},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			m, err := NewMessage(tt.role, "hello")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !IsKind(err, ErrValidation) {
					t.Errorf("kind = %v, want validation", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if m.Role() != tt.role {
				t.Errorf("Role = %q, want %q", m.Role(), tt.role)
			}
			if m.Content() != "hello" {
				t.Errorf("Content = %q", m.Content())
			}
			if m.ID() == "" {
				t.Error("ID is empty")
			}
		})
	}
}

func TestMessage_SetRoleInvalidKeepsPrevious(t *testing.T) {
	m := UserMessage("hi")
	if err := m.SetRole(Role("robot")); err == nil {
		t.Fatal("expected error")
	}
	if m.Role() != RoleUser {
		t.Errorf("Role = %q, want user after rejected assignment", m.Role())
	}
	if err := m.SetRole(RoleAssistant); err != nil {
		t.Fatal(err)
	}
	if m.Role() != RoleAssistant {
		t.Errorf("Role = %q, want assistant", m.Role())
	}
}

func TestMessage_UpdateIsAtomic(t *testing.T) {
	m := UserMessage("original")
	if err := m.Update(Role("bogus"), "changed"); err == nil {
		t.Fatal("expected error")
	}
	if m.Role() != RoleUser || m.Content() != "original" {
		t.Errorf("message changed on failed update: role=%q content=%q", m.Role(), m.Content())
	}
	if err := m.Update(RoleAssistant, "changed"); err != nil {
		t.Fatal(err)
	}
	if m.Role() != RoleAssistant || m.Content() != "changed" {
		t.Errorf("update not applied: role=%q content=%q", m.Role(), m.Content())
	}
}

func TestMessage_Record(t *testing.T) {
	m := UserMessage("hi")

	with := m.Record(true)
	if with.ID != m.ID() || with.Role != RoleUser || with.Content != "hi" {
		t.Errorf("Record(true) = %+v", with)
	}

	without := m.Record(false)
	if without.ID != "" {
		t.Errorf("Record(false).ID = %q, want empty", without.ID)
	}
}

func TestFromRecord_RoundTrip(t *testing.T) {
	m := UserMessage("hi")
	back, err := FromRecord(m.Record(true))
	if err != nil {
		t.Fatal(err)
	}
	if back.ID() != m.ID() || back.Role() != m.Role() || back.Content() != m.Content() {
		t.Errorf("round trip mismatch: %+v", back)
	}
}

func TestFromRecord_FreshIDWhenOmitted(t *testing.T) {
	m, err := FromRecord(Record{Role: RoleAssistant, Content: "ok"})
	if err != nil {
		t.Fatal(err)
	}
	if m.ID() == "" {
		t.Error("expected a generated id")
	}
}

func TestSystemMessage_RolePinned(t *testing.T) {
	s := NewSystemMessage("be helpful")
	if s.Role() != RoleSystem {
		t.Errorf("Role = %q", s.Role())
	}
	for _, role := range []Role{RoleUser, RoleAssistant, Role("bogus")} {
		if err := s.SetRole(role); err == nil {
			t.Errorf("SetRole(%q) should fail", role)
		}
	}
	if err := s.SetRole(RoleSystem); err != nil {
		t.Errorf("SetRole(system) failed: %v", err)
	}
	if s.Role() != RoleSystem {
		t.Errorf("Role = %q after assignments", s.Role())
	}
}

func TestSystemFromMessage(t *testing.T) {
	src, err := NewMessage(RoleSystem, "rules")
	if err != nil {
		t.Fatal(err)
	}
	s, err := SystemFromMessage(src)
	if err != nil {
		t.Fatal(err)
	}
	if s.Content() != "rules" {
		t.Errorf("Content = %q", s.Content())
	}

	if _, err := SystemFromMessage(UserMessage("nope")); err == nil {
		t.Error("narrowing a user message should fail")
	}
	if _, err := SystemFromMessage(nil); err == nil {
		t.Error("narrowing nil should fail")
	}
}

func TestSystemMessage_AsMessage(t *testing.T) {
	s := NewSystemMessage("rules")
	m := s.AsMessage()
	if m.Role() != RoleSystem || m.Content() != "rules" {
		t.Errorf("AsMessage = %+v", m)
	}
	// Widened copy is independent of the system message.
	if err := m.SetRole(RoleUser); err != nil {
		t.Fatal(err)
	}
	if s.Role() != RoleSystem {
		t.Error("system message role changed through widened copy")
	}
}
