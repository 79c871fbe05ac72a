package usersync

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
)

// Reconciler applies directory state to the remote store, one team at a
// time. Every mutation goes through the UserStore; nothing here talks to
// the network directly.
type Reconciler struct {
	store UserStore
	log   zerolog.Logger
}

func NewReconciler(store UserStore, log zerolog.Logger) *Reconciler {
	return &Reconciler{store: store, log: log}
}

// ReconcileTeam provisions every directory user into the team and makes the
// leader its sole owner. The boolean reports whether the team was actually
// processed; skip conditions (unresolved leader, unknown team) are logged
// and deliberately not errors. A returned error is a hard stop for the
// whole run.
//
// The loop is not transactional: a failure at user N leaves users 1..N-1
// fully reconciled and the rest untouched.
func (r *Reconciler) ReconcileTeam(users []DirectoryUser, teamKey, leaderMail string) (bool, error) {
	if leaderMail == "" {
		r.log.Error().Str("team", teamKey).Msg("skipping team: no leader mail address could be obtained from the directory")
		return false, nil
	}
	teamID, err := r.store.TeamIDByKey(teamKey)
	if err != nil {
		r.log.Error().Err(err).Str("team", teamKey).Msg("skipping team: not present in ElabFTW, make sure the team exists")
		return false, nil
	}
	var leader *DirectoryUser
	for i := range users {
		if users[i].Email == leaderMail {
			leader = &users[i]
			break
		}
	}
	if leader == nil {
		r.log.Error().Str("team", teamKey).Str("leader", leaderMail).Msg("skipping team: leader not in directory group")
		return false, nil
	}

	leaderID, _, err := r.store.EnsureUser(*leader, teamID)
	if err != nil {
		r.log.Error().Err(err).Str("team", teamKey).Msg("skipping team: leader account could not be provisioned")
		return false, nil
	}
	if err = r.store.AddUserToTeam(leaderID, teamID); err != nil {
		r.log.Error().Err(err).Str("team", teamKey).Msg("skipping team: leader could not be referenced into the team")
		return false, nil
	}

	// the leader is done; everyone else follows in directory order
	bar := progressbar.Default(int64(len(users)-1), "Processing users in ElabFTW")
	for _, u := range users {
		if u.Email == leaderMail {
			continue
		}
		if err := r.provisionMember(u, teamID); err != nil {
			r.log.Error().Err(err).Str("uniid", u.UniID).Msg("user left unreconciled")
		}
		_ = bar.Add(1)
	}

	r.log.Info().Str("team", teamKey).Str("leader", leader.UniID).Msg("making sure the leader is the sole team owner")
	if err = r.store.EnsureSingleOwner(leaderID, teamID); err != nil {
		return false, fmt.Errorf("team %s: %w", teamKey, err)
	}
	r.log.Info().Str("team", teamKey).Msg("team owner set successfully")
	return true, nil
}

// provisionMember resolves one directory user and references them into the
// team. Accounts unarchived here were parked in the fallback team by an
// earlier removal; that reference is undone again.
func (r *Reconciler) provisionMember(u DirectoryUser, teamID int) error {
	userID, unarchived, err := r.store.EnsureUser(u, teamID)
	if err != nil {
		return err
	}
	if err = r.store.AddUserToTeam(userID, teamID); err != nil {
		return err
	}
	if unarchived {
		return r.store.RemoveFromFallbackTeam(userID)
	}
	return nil
}

// ReconcileRemovals drops every team member whose uni id the directory no
// longer returns. Removal failures are logged per user and do not stop the
// pass.
func (r *Reconciler) ReconcileRemovals(teamKey string, directoryIDs Set[string]) error {
	teamID, err := r.store.TeamIDByKey(teamKey)
	if err != nil {
		return err
	}
	members := r.store.TeamMembers(teamID)
	remoteIDs := NewSet[string]()
	for _, member := range members {
		remoteIDs.Add(member.UniID)
	}
	_, toRemove := DiffRosters(directoryIDs, remoteIDs)
	if len(toRemove) == 0 {
		r.log.Info().Str("team", teamKey).Msg("no changes in users detected")
		return nil
	}
	r.log.Info().Str("team", teamKey).Int("count", len(toRemove)).Msg("removing users from team")
	for _, member := range members {
		if !toRemove.Has(member.UniID) {
			continue
		}
		r.log.Info().Str("uniid", member.UniID).Int("userid", member.ID).Str("team", teamKey).Msg("removing user from team")
		if err := r.store.RemoveUserFromTeam(member.ID, teamID); err != nil {
			r.log.Error().Err(err).Str("uniid", member.UniID).Msg("removing user failed")
		}
	}
	return nil
}

// Syncer drives the whitelist loop: one LDAP group and one ElabFTW team per
// entry, strictly in file order.
type Syncer struct {
	dir EntrySearcher
	rec *Reconciler
	cfg Config
	log zerolog.Logger
}

func NewSyncer(dir EntrySearcher, store UserStore, cfg Config, log zerolog.Logger) *Syncer {
	return &Syncer{dir: dir, rec: NewReconciler(store, log), cfg: cfg, log: log}
}

// Run processes every whitelist entry. Directory transport failures and
// ownership failures abort the run; everything else skips at most one team.
func (s *Syncer) Run(whitelist []WhitelistEntry) error {
	for _, entry := range whitelist {
		s.log.Info().Str("team", entry.GroupName).Msg("processing team")
		filter := strings.ReplaceAll(s.cfg.SearchGroupFilter, "{groupname}", entry.GroupName)
		entries, err := s.dir.Search(s.cfg.LDAPBaseDN, filter, s.cfg.SearchUserAttrs)
		if err != nil {
			return err
		}
		users, err := ParseDirectoryUsers(entries, s.cfg.PseudoMail)
		if err != nil {
			s.log.Error().Err(err).Str("team", entry.GroupName).Msg("skipping team: directory entries not parseable")
			continue
		}
		leaderMail, ok := LeaderEmail(users, entry.Leader)
		if !ok {
			s.log.Error().Str("leader", entry.Leader).Msg("no leader mail address could be obtained from the directory")
		}
		synced, err := s.rec.ReconcileTeam(users, entry.GroupName, leaderMail)
		if err != nil {
			return err
		}
		if !synced {
			continue
		}
		directoryIDs := NewSet[string]()
		for _, u := range users {
			directoryIDs.Add(u.UniID)
		}
		if err := s.rec.ReconcileRemovals(entry.GroupName, directoryIDs); err != nil {
			s.log.Error().Err(err).Str("team", entry.GroupName).Msg("removal pass failed")
		}
	}
	return nil
}
