package usersync

// DirectoryUser is one member of an LDAP group, parsed from a raw search
// entry. Instances live for a single sync run and are discarded afterwards.
type DirectoryUser struct {
	UniID     string
	Email     string
	FirstName string
	LastName  string
}

// Usergroup permission levels as ElabFTW encodes them.
const (
	GroupSysAdmin = 1
	GroupAdmin    = 2
	GroupUser     = 4
)

// TeamMembership is one entry of a user's "teams" array.
type TeamMembership struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Usergroup int    `json:"usergroup"`
	IsOwner   int    `json:"is_owner"`
}

// RemoteUser mirrors the ElabFTW v2 user object. The summary listing leaves
// Teams empty; the per-user detail endpoint fills it.
type RemoteUser struct {
	ID        int              `json:"userid"`
	UniID     string           `json:"orgid"`
	Email     string           `json:"email"`
	FirstName string           `json:"firstname"`
	LastName  string           `json:"lastname"`
	Archived  int              `json:"archived"`
	Teams     []TeamMembership `json:"teams"`
}

func (u *RemoteUser) IsArchived() bool { return u.Archived == 1 }

func (u *RemoteUser) membership(teamID int) *TeamMembership {
	for i := range u.Teams {
		if u.Teams[i].ID == teamID {
			return &u.Teams[i]
		}
	}
	return nil
}

// Team mirrors the ElabFTW v2 team object. OrgID carries the external key
// the whitelist group names are matched against.
type Team struct {
	ID    int    `json:"id"`
	OrgID string `json:"orgid"`
	Name  string `json:"name"`
}

// WhitelistEntry names one LDAP group to sync and the uni id of its leader.
type WhitelistEntry struct {
	GroupName string
	Leader    string
}

// UserStore is the mutation surface of the remote application the
// reconciler works against. ElabClient is the production implementation.
type UserStore interface {
	TeamIDByKey(key string) (int, error)
	UserByUniID(uniID string) (*RemoteUser, bool)
	EnsureUser(u DirectoryUser, teamID int) (userID int, unarchived bool, err error)
	AddUserToTeam(userID, teamID int) error
	RemoveUserFromTeam(userID, teamID int) error
	RemoveFromFallbackTeam(userID int) error
	TeamMembers(teamID int) []*RemoteUser
	EnsureSingleOwner(newOwnerID, teamID int) error
}
