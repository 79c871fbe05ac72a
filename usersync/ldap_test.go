package usersync

import (
	"strings"
	"testing"

	"github.com/go-ldap/ldap/v3"
)

func directoryEntry(uniID, mail, givenName, sn string) *ldap.Entry {
	attrs := map[string][]string{
		"cn":        {uniID},
		"givenName": {givenName},
		"sn":        {sn},
	}
	if mail != "" {
		attrs["mail"] = []string{mail}
	}
	return ldap.NewEntry("cn="+uniID+",ou=person,dc=identity,dc=uni-muenster,dc=de", attrs)
}

func TestParseDirectoryUsers(t *testing.T) {
	entries := []*ldap.Entry{
		directoryEntry("m_muster01", "max.mustermann@uni-muenster.de", "Max", "Mustermann"),
		directoryEntry("e_beisp02", "eva.beispiel@uni-muenster.de", "Eva", "Beispiel"),
	}

	users, err := ParseDirectoryUsers(entries, false)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	want := DirectoryUser{
		UniID:     "m_muster01",
		Email:     "max.mustermann@uni-muenster.de",
		FirstName: "Max",
		LastName:  "Mustermann",
	}
	if users[0] != want {
		t.Fatalf("expected %+v, got %+v", want, users[0])
	}
}

func TestParseDirectoryUsersGeneratesPseudoMail(t *testing.T) {
	entries := []*ldap.Entry{directoryEntry("m_muster01", "", "Max", "Mustermann")}

	users, err := ParseDirectoryUsers(entries, true)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got, want := users[0].Email, "m_muster01@pseudomail.uni-muenster.de"; got != want {
		t.Fatalf("expected pseudo mail %q, got %q", want, got)
	}
}

func TestParseDirectoryUsersRejectsMissingMail(t *testing.T) {
	entries := []*ldap.Entry{directoryEntry("m_muster01", "", "Max", "Mustermann")}

	_, err := ParseDirectoryUsers(entries, false)
	if err == nil {
		t.Fatal("expected parse error for missing mail attribute")
	}
	if !strings.Contains(err.Error(), "m_muster01") {
		t.Fatalf("error should name the uni id, got: %v", err)
	}
}

func TestLeaderEmail(t *testing.T) {
	users := []DirectoryUser{
		{UniID: "m_muster01", Email: "max.mustermann@uni-muenster.de"},
		{UniID: "e_beisp02", Email: "eva.beispiel@uni-muenster.de"},
	}

	mail, ok := LeaderEmail(users, "e_beisp02")
	if !ok || mail != "eva.beispiel@uni-muenster.de" {
		t.Fatalf("expected leader mail, got %q ok=%v", mail, ok)
	}

	if _, ok = LeaderEmail(users, "x_nlicense"); ok {
		t.Fatal("expected leader lookup to fail for an unknown uni id")
	}
}
