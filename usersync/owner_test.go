package usersync

import "testing"

// ownerFake seeds a team with members and returns client plus fake.
func ownerFake(t *testing.T, memberships map[int]int) (*fakeElab, *ElabClient) {
	// memberships maps userID to is_owner flag for team 7
	f := newFakeElab(t)
	f.addTeam(7, "physik")
	for id, isOwner := range memberships {
		group := GroupUser
		if isOwner == 1 {
			group = GroupAdmin
		}
		f.addUser(&RemoteUser{ID: id, UniID: "u" + string(rune('a'+id%26)),
			Teams: []TeamMembership{{ID: 7, Name: "physik", Usergroup: group, IsOwner: isOwner}}})
	}
	return f, f.client()
}

func assertSoleOwner(t *testing.T, f *fakeElab, c *ElabClient, teamID, ownerID int) {
	t.Helper()
	owners := c.TeamOwners(teamID)
	if len(owners) != 1 || owners[0] != ownerID {
		t.Fatalf("expected sole owner %d, got %v", ownerID, owners)
	}
	m := f.users[ownerID].membership(teamID)
	if m == nil || m.IsOwner != 1 {
		t.Fatalf("owner flag not set remotely: %+v", m)
	}
	if m.Usergroup != GroupAdmin {
		t.Fatalf("owner must hold admin rights, usergroup is %d", m.Usergroup)
	}
}

func TestEnsureSingleOwnerNoOwner(t *testing.T) {
	f, c := ownerFake(t, map[int]int{11: 0, 12: 0})

	if err := c.EnsureSingleOwner(11, 7); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	assertSoleOwner(t, f, c, 7, 11)
}

func TestEnsureSingleOwnerAlreadySet(t *testing.T) {
	f, c := ownerFake(t, map[int]int{11: 1, 12: 0})

	if err := c.EnsureSingleOwner(11, 7); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	assertSoleOwner(t, f, c, 7, 11)
	if len(f.patches) != 0 {
		t.Fatalf("promoting the current sole owner must be a no-op, got patches %v", f.patches)
	}
}

func TestEnsureSingleOwnerReplacesOwner(t *testing.T) {
	f, c := ownerFake(t, map[int]int{11: 1, 12: 0})

	if err := c.EnsureSingleOwner(12, 7); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	assertSoleOwner(t, f, c, 7, 12)

	old := f.users[11].membership(7)
	if old.IsOwner != 0 || old.Usergroup != GroupUser {
		t.Fatalf("previous owner not fully demoted: %+v", old)
	}
}

func TestEnsureSingleOwnerDemotesAll(t *testing.T) {
	f, c := ownerFake(t, map[int]int{11: 1, 12: 1, 13: 1, 14: 0})

	if err := c.EnsureSingleOwner(14, 7); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	assertSoleOwner(t, f, c, 7, 14)
	for _, id := range []int{11, 12, 13} {
		m := f.users[id].membership(7)
		if m.IsOwner != 0 || m.Usergroup != GroupUser {
			t.Fatalf("user %d not demoted: %+v", id, m)
		}
	}
}

func TestEnsureSingleOwnerNewOwnerAmongMany(t *testing.T) {
	// the designated owner already holds the flag, but so does someone else:
	// everyone is demoted first, then the designated owner is promoted again
	f, c := ownerFake(t, map[int]int{11: 1, 12: 1})

	if err := c.EnsureSingleOwner(11, 7); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	assertSoleOwner(t, f, c, 7, 11)
	m := f.users[12].membership(7)
	if m.IsOwner != 0 || m.Usergroup != GroupUser {
		t.Fatalf("other owner not demoted: %+v", m)
	}
}

func TestEnsureSingleOwnerFailsWhenFlagRejected(t *testing.T) {
	f, c := ownerFake(t, map[int]int{12: 0})
	// user 11 is not a team member, so the patchuser2team action is rejected
	f.addUser(&RemoteUser{ID: 11, UniID: "ua"})
	c = f.client()

	err := c.EnsureSingleOwner(11, 7)
	if err == nil {
		t.Fatal("expected promotion failure for a non-member")
	}
	// only the rejected is_owner patch went out, the admin-rights patch
	// must have been skipped
	if f.patchCount("patchuser2team") != 1 {
		t.Fatalf("expected exactly one patch attempt, got %v", f.patches)
	}
	if len(c.TeamOwners(7)) != 0 {
		t.Fatalf("no owner should have been recorded, got %v", c.TeamOwners(7))
	}
}
