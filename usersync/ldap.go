package usersync

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog"
)

// PseudoMailDomain is appended to the uni id when the directory carries no
// mail attribute and pseudo mail generation is enabled.
const PseudoMailDomain = "pseudomail.uni-muenster.de"

// Directory attribute names the parser relies on.
const (
	attrUniID     = "cn"
	attrMail      = "mail"
	attrFirstName = "givenName"
	attrLastName  = "sn"
)

// EntrySearcher is the read-only directory query surface the orchestrator
// uses. DirectoryClient is the production implementation.
type EntrySearcher interface {
	Search(baseDN, filter string, attrs []string) ([]*ldap.Entry, error)
}

// DirectoryClient wraps a bound LDAP connection.
type DirectoryClient struct {
	conn *ldap.Conn
	log  zerolog.Logger
}

// DialDirectory connects and binds. Any transport or credential failure is
// wrapped as ErrDirectoryUnavailable; there is no retry.
func DialDirectory(cfg Config, log zerolog.Logger) (*DirectoryClient, error) {
	conn, err := ldap.DialURL(cfg.LDAPHost, ldap.DialWithTLSConfig(directoryTLSConfig(cfg.RootCertsDir)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	if err = conn.Bind(cfg.LDAPDN, cfg.LDAPPassword); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: bind: %v", ErrDirectoryUnavailable, err)
	}
	return &DirectoryClient{conn: conn, log: log}, nil
}

// directoryTLSConfig extends the system roots with every certificate found
// in certsDir. Unreadable files are skipped.
func directoryTLSConfig(certsDir string) *tls.Config {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if entries, err := os.ReadDir(certsDir); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if data, err := os.ReadFile(filepath.Join(certsDir, e.Name())); err == nil {
				pool.AppendCertsFromPEM(data)
			}
		}
	}
	return &tls.Config{RootCAs: pool}
}

// Search runs a subtree search and returns the raw entries.
func (c *DirectoryClient) Search(baseDN, filter string, attrs []string) ([]*ldap.Entry, error) {
	req := ldap.NewSearchRequest(baseDN, ldap.ScopeWholeSubtree, ldap.NeverDerefAliases,
		0, 0, false, filter, attrs, nil)
	res, err := c.conn.Search(req)
	if err != nil {
		return nil, fmt.Errorf("directory search %q: %w", filter, err)
	}
	return res.Entries, nil
}

func (c *DirectoryClient) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// ParseDirectoryUsers turns raw search entries into DirectoryUsers. A
// missing mail attribute is tolerated only when pseudoMail is enabled; the
// generated address marks the account as unreachable by mail.
func ParseDirectoryUsers(entries []*ldap.Entry, pseudoMail bool) ([]DirectoryUser, error) {
	users := make([]DirectoryUser, 0, len(entries))
	for _, e := range entries {
		uniID := e.GetAttributeValue(attrUniID)
		mail := e.GetAttributeValue(attrMail)
		if mail == "" {
			if !pseudoMail {
				return nil, fmt.Errorf("no mail address in directory for user %q", uniID)
			}
			mail = fmt.Sprintf("%s@%s", uniID, PseudoMailDomain)
		}
		users = append(users, DirectoryUser{
			UniID:     uniID,
			Email:     mail,
			FirstName: e.GetAttributeValue(attrFirstName),
			LastName:  e.GetAttributeValue(attrLastName),
		})
	}
	return users, nil
}

// LeaderEmail resolves the configured leader account to the mail address the
// directory returned for it. The second return is false when the leader is
// not part of the group.
func LeaderEmail(users []DirectoryUser, leaderUniID string) (string, bool) {
	for _, u := range users {
		if u.UniID == leaderUniID {
			return u.Email, true
		}
	}
	return "", false
}
