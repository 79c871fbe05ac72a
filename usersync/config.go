package usersync

import (
	"fmt"
	"os"
	"strings"
)

// Config carries everything the sync reads from the environment.
type Config struct {
	LDAPHost          string
	LDAPDN            string
	LDAPBaseDN        string
	LDAPPassword      string
	SearchGroupFilter string // contains a {groupname} placeholder
	SearchUserAttrs   []string
	PseudoMail        bool

	ElabHost   string
	ElabAPIKey string

	WhitelistFile string
	RootCertsDir  string
}

// ConfigFromEnv collects and validates the configuration. All missing
// required variables are reported in a single error.
func ConfigFromEnv() (Config, error) {
	var missing []string
	need := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	cfg := Config{
		LDAPHost:          need("LDAP_HOST"),
		LDAPDN:            need("LDAP_DN"),
		LDAPBaseDN:        need("LDAP_BASE_DN"),
		LDAPPassword:      need("LDAP_PASSWORD"),
		SearchGroupFilter: need("LDAP_SEARCH_GROUP"),
		ElabHost:          need("ELABFTW_HOST"),
		ElabAPIKey:        need("ELABFTW_APIKEY"),
		PseudoMail:        os.Getenv("LDAP_PSEUDO_MAIL") == "TRUE",
		WhitelistFile:     envOr("WHITELIST_FILENAME", "group_whitelist.csv"),
		RootCertsDir:      envOr("ROOT_CERTS_DIR", "/etc/ssl/certs"),
	}
	for _, a := range strings.Split(need("LDAP_SEARCH_USER_ATTRS"), ",") {
		if a = strings.TrimSpace(a); a != "" {
			cfg.SearchUserAttrs = append(cfg.SearchUserAttrs, a)
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("environment variables not set: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
