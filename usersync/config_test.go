package usersync

import (
	"strings"
	"testing"
)

func setSyncEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LDAP_HOST", "ldaps://ldap-as.ulb.uni-muenster.de:636")
	t.Setenv("LDAP_DN", "cn=reader,dc=identity,dc=uni-muenster,dc=de")
	t.Setenv("LDAP_BASE_DN", "dc=identity,dc=uni-muenster,dc=de")
	t.Setenv("LDAP_PASSWORD", "secret")
	t.Setenv("LDAP_SEARCH_GROUP", "(memberof=cn={groupname},ou=persongroup,dc=identity,dc=uni-muenster,dc=de)")
	t.Setenv("LDAP_SEARCH_USER_ATTRS", "cn, sn,givenName,mail")
	t.Setenv("ELABFTW_HOST", "https://elabftw.uni-muenster.de")
	t.Setenv("ELABFTW_APIKEY", "apikey")
	t.Setenv("LDAP_PSEUDO_MAIL", "")
	t.Setenv("WHITELIST_FILENAME", "")
	t.Setenv("ROOT_CERTS_DIR", "")
}

func TestConfigFromEnv(t *testing.T) {
	setSyncEnv(t)

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	wantAttrs := []string{"cn", "sn", "givenName", "mail"}
	if len(cfg.SearchUserAttrs) != len(wantAttrs) {
		t.Fatalf("expected %v, got %v", wantAttrs, cfg.SearchUserAttrs)
	}
	for i := range wantAttrs {
		if cfg.SearchUserAttrs[i] != wantAttrs[i] {
			t.Fatalf("expected %v, got %v", wantAttrs, cfg.SearchUserAttrs)
		}
	}
	if cfg.PseudoMail {
		t.Fatal("pseudo mail must default to off")
	}
	if cfg.WhitelistFile != "group_whitelist.csv" {
		t.Fatalf("unexpected whitelist default: %q", cfg.WhitelistFile)
	}
	if cfg.RootCertsDir != "/etc/ssl/certs" {
		t.Fatalf("unexpected certs dir default: %q", cfg.RootCertsDir)
	}
}

func TestConfigFromEnvReportsAllMissing(t *testing.T) {
	setSyncEnv(t)
	t.Setenv("LDAP_PASSWORD", "")
	t.Setenv("ELABFTW_APIKEY", "")

	_, err := ConfigFromEnv()
	if err == nil {
		t.Fatal("expected error for missing variables")
	}
	for _, name := range []string{"LDAP_PASSWORD", "ELABFTW_APIKEY"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("error should name %s, got: %v", name, err)
		}
	}
}

func TestConfigFromEnvPseudoMailFlag(t *testing.T) {
	setSyncEnv(t)
	t.Setenv("LDAP_PSEUDO_MAIL", "TRUE")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !cfg.PseudoMail {
		t.Fatal("pseudo mail flag not picked up")
	}
}
