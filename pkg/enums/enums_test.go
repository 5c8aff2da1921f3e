package enums

import "testing"

func TestParseProductStatus(t *testing.T) {
	for _, raw := range []string{"draft", "published", "archived"} {
		got, err := ParseProductStatus(raw)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", raw, err)
		}
		if got.String() != raw {
			t.Fatalf("expected %q, got %q", raw, got)
		}
	}
	if _, err := ParseProductStatus("sold"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestEventStatusTerminal(t *testing.T) {
	if EventStatusPending.IsTerminal() {
		t.Fatal("pending must not be terminal")
	}
	if !EventStatusResolved.IsTerminal() || !EventStatusDiscarded.IsTerminal() {
		t.Fatal("resolved and discarded must be terminal")
	}
	if _, err := ParseEventStatus("cancelled"); err == nil {
		t.Fatal("expected error for unknown event status")
	}
}

func TestRoleNames(t *testing.T) {
	if DefaultRole != RoleVendor {
		t.Fatalf("expected vendor default role, got %s", DefaultRole)
	}
	roles := SeededRoles()
	if len(roles) != 2 {
		t.Fatalf("expected 2 seeded roles, got %d", len(roles))
	}
	roles[0] = "mutated"
	if SeededRoles()[0] != RoleVendor {
		t.Fatal("SeededRoles must return a copy")
	}
	if RoleName("admin").IsValid() {
		t.Fatal("admin is not a known role")
	}
	if r, err := ParseRoleName("root"); err != nil || r != RoleRoot {
		t.Fatalf("expected root, got %v %v", r, err)
	}
}
