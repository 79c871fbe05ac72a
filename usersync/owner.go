package usersync

import "fmt"

// TeamOwners returns the ids of every snapshot user holding the owner flag
// for the team. Anything other than exactly one element means the remote
// state drifted, usually through a partial earlier run or a manual edit.
func (c *ElabClient) TeamOwners(teamID int) []int {
	var owners []int
	for _, u := range c.TeamMembers(teamID) {
		if m := u.membership(teamID); m != nil && m.IsOwner == 1 {
			owners = append(owners, u.ID)
		}
	}
	return owners
}

// EnsureSingleOwner drives the team to the state "newOwnerID is the only
// owner". Failures here abort the whole run: leadership ambiguity is worse
// than a stale roster.
func (c *ElabClient) EnsureSingleOwner(newOwnerID, teamID int) error {
	owners := c.TeamOwners(teamID)
	switch {
	case len(owners) == 0:
		c.log.Info().Int("team", teamID).Msg("team had no owner, setting new one")
	case len(owners) > 1:
		c.log.Info().Int("team", teamID).Int("owners", len(owners)).Msg("team has more than one owner, unsetting all")
		for _, id := range owners {
			if err := c.removeTeamOwnership(id, teamID); err != nil {
				return err
			}
		}
	case owners[0] == newOwnerID:
		c.log.Info().Int("team", teamID).Msg("the new owner is the same as the current owner, doing nothing")
		return nil
	default:
		c.log.Info().Int("team", teamID).Msg("change in ownership detected")
		if err := c.removeTeamOwnership(owners[0], teamID); err != nil {
			return err
		}
	}
	_, err := c.setTeamOwner(newOwnerID, teamID)
	return err
}

// setTeamOwner promotes the user to owner and, once the remote confirms the
// flag, to team admin. An owner must also hold admin rights. Promoting the
// current sole owner is a no-op and reports false.
func (c *ElabClient) setTeamOwner(userID, teamID int) (bool, error) {
	u, ok := c.userByID(userID)
	if !ok {
		return false, fmt.Errorf("setting owner of team %d: %w (user %d)", teamID, ErrUserNotFound, userID)
	}
	if m := u.membership(teamID); m != nil && m.IsOwner == 1 {
		return false, nil
	}
	updated, err := c.patchUser(userID, patchOwnerFlag(userID, teamID, true))
	if err != nil {
		return false, fmt.Errorf("setting owner of team %d: %w", teamID, err)
	}
	if m := updated.membership(teamID); m == nil || m.IsOwner != 1 {
		return false, fmt.Errorf("user %d did not become owner of team %d", userID, teamID)
	}
	if _, err = c.patchUser(userID, patchUsergroup(userID, teamID, GroupAdmin)); err != nil {
		return false, fmt.Errorf("setting admin of team %d: %w", teamID, err)
	}
	c.log.Info().Int("userid", userID).Int("team", teamID).Msg("user set as owner and admin of team")
	return true, nil
}

// removeTeamOwnership demotes in two patches: clear the owner flag, then
// drop the usergroup back to plain user. A non-owner is left untouched.
func (c *ElabClient) removeTeamOwnership(userID, teamID int) error {
	u, ok := c.userByID(userID)
	if !ok {
		return fmt.Errorf("removing ownership in team %d: %w (user %d)", teamID, ErrUserNotFound, userID)
	}
	if m := u.membership(teamID); m == nil || m.IsOwner != 1 {
		return nil
	}
	c.log.Info().Int("userid", userID).Int("team", teamID).Msg("removing team ownership")
	if _, err := c.patchUser(userID, patchOwnerFlag(userID, teamID, false)); err != nil {
		return fmt.Errorf("unsetting owner of team %d: %w", teamID, err)
	}
	if _, err := c.patchUser(userID, patchUsergroup(userID, teamID, GroupUser)); err != nil {
		return fmt.Errorf("demoting user %d in team %d: %w", userID, teamID, err)
	}
	return nil
}
