package usersync

// The ElabFTW user PATCH endpoint multiplexes on an "action" discriminator.
// Every action the sync issues is built by one of the constructors below;
// the unexported interface keeps the set closed.

type userPatch interface {
	patchBody() any
}

type archivePatch struct{}

// patchArchiveToggle flips the archived state. There is no separate
// unarchive action; archiving an archived user un-archives it.
func patchArchiveToggle() userPatch { return archivePatch{} }

func (archivePatch) patchBody() any {
	return struct {
		Action string `json:"action"`
	}{"archive"}
}

type addTeamPatch struct{ team int }

func patchAddToTeam(teamID int) userPatch { return addTeamPatch{team: teamID} }

func (p addTeamPatch) patchBody() any {
	return struct {
		Action string `json:"action"`
		Team   int    `json:"team"`
	}{"add", p.team}
}

type unreferencePatch struct{ team int }

func patchUnreference(teamID int) userPatch { return unreferencePatch{team: teamID} }

func (p unreferencePatch) patchBody() any {
	return struct {
		Action string `json:"action"`
		Team   int    `json:"team"`
	}{"unreference", p.team}
}

type ownerFlagPatch struct {
	userID int
	team   int
	owner  bool
}

func patchOwnerFlag(userID, teamID int, owner bool) userPatch {
	return ownerFlagPatch{userID: userID, team: teamID, owner: owner}
}

func (p ownerFlagPatch) patchBody() any {
	return struct {
		Action  string `json:"action"`
		UserID  int    `json:"userid"`
		Team    int    `json:"team"`
		Target  string `json:"target"`
		Content bool   `json:"content"`
	}{"patchuser2team", p.userID, p.team, "is_owner", p.owner}
}

type usergroupPatch struct {
	userID int
	team   int
	group  int
}

func patchUsergroup(userID, teamID, group int) userPatch {
	return usergroupPatch{userID: userID, team: teamID, group: group}
}

func (p usergroupPatch) patchBody() any {
	return struct {
		Action  string `json:"action"`
		UserID  int    `json:"userid"`
		Team    int    `json:"team"`
		Target  string `json:"target"`
		Content int    `json:"content"`
	}{"patchuser2team", p.userID, p.team, "group", p.group}
}
