package usersync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
)

// FallbackTeamKey is the external key of the reserved team that keeps
// otherwise teamless users referenced. Every user must belong to at least
// one team.
const FallbackTeamKey = "userarchiv"

const apiPrefix = "api/v2"

// ElabClient talks to one ElabFTW instance over its v2 REST API and keeps a
// snapshot of every user (archived included) for the duration of one run.
// The snapshot is updated after each successful mutation so that later
// lookups within the same run observe earlier writes; the instance itself
// never talks to more than one logical flow.
type ElabClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger

	users          []*RemoteUser
	fallbackTeamID int
}

func NewElabClient(baseURL, apiKey string, log zerolog.Logger) *ElabClient {
	return &ElabClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  http.DefaultClient,
		log:     log,
	}
}

func (c *ElabClient) endpoint(parts ...string) string {
	return c.baseURL + "/" + apiPrefix + "/" + strings.Join(parts, "/")
}

// do sends one request with the api key attached and returns the response
// and its body. A status >= 300 is an error carrying the response body when
// there is one. Every call is attempted exactly once.
func (c *ElabClient) do(method, endpoint string, payload any) (*http.Response, []byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, err
		}
		body = bytes.NewReader(data)
	}
	rq, err := http.NewRequest(method, endpoint, body)
	if err != nil {
		return nil, nil, err
	}
	rq.Header.Set("Authorization", c.apiKey)
	if payload != nil {
		rq.Header.Set("Content-Type", "application/json")
	}
	rs, err := c.client.Do(rq)
	if err != nil {
		return nil, nil, err
	}
	defer rs.Body.Close()
	data, err := io.ReadAll(rs.Body)
	if err != nil {
		return nil, nil, err
	}
	if rs.StatusCode >= 300 {
		short := strings.TrimPrefix(endpoint, c.baseURL)
		if len(data) > 0 {
			return rs, data, fmt.Errorf("%s %s: %s", method, short, strings.TrimSpace(string(data)))
		}
		return rs, data, fmt.Errorf("%s %s: status %d", method, short, rs.StatusCode)
	}
	return rs, data, nil
}

// CheckConnection probes the info endpoint.
func (c *ElabClient) CheckConnection() error {
	if _, _, err := c.do(http.MethodGet, c.endpoint("info"), nil); err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnreachable, err)
	}
	return nil
}

// LoadUsers fills the run snapshot: the summary listing first, then one
// detail request per user, because the listing omits team memberships. A
// failed detail fetch drops that user from the snapshot and is logged.
func (c *ElabClient) LoadUsers() error {
	c.log.Info().Msg("getting all users from ElabFTW")
	_, data, err := c.do(http.MethodGet, c.endpoint("users")+"?includeArchived=1", nil)
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}
	var summaries []*RemoteUser
	if err = json.Unmarshal(data, &summaries); err != nil {
		return fmt.Errorf("decoding user listing: %w", err)
	}
	bar := progressbar.Default(int64(len(summaries)), "Initial crawling of userdata")
	users := make([]*RemoteUser, 0, len(summaries))
	for _, s := range summaries {
		detail, err := c.fetchUserDetail(s.ID)
		if err != nil {
			c.log.Error().Err(err).Int("userid", s.ID).Msg("fetching user detail")
		} else {
			users = append(users, detail)
		}
		_ = bar.Add(1)
	}
	c.users = users
	return nil
}

func (c *ElabClient) fetchUserDetail(userID int) (*RemoteUser, error) {
	_, data, err := c.do(http.MethodGet, c.endpoint("users", strconv.Itoa(userID)), nil)
	if err != nil {
		return nil, err
	}
	var u RemoteUser
	if err = json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("decoding user %d: %w", userID, err)
	}
	return &u, nil
}

// UserByUniID looks a user up in the snapshot by the directory-assigned id.
func (c *ElabClient) UserByUniID(uniID string) (*RemoteUser, bool) {
	for _, u := range c.users {
		if u.UniID == uniID {
			return u, true
		}
	}
	return nil, false
}

func (c *ElabClient) userByID(userID int) (*RemoteUser, bool) {
	for _, u := range c.users {
		if u.ID == userID {
			return u, true
		}
	}
	return nil, false
}

// CreateUser posts a new account and returns its id taken from the Location
// header. A response without a parseable id fails with ErrNoUserID. When
// teamID is set the account starts out referenced into that team and the
// snapshot records the membership.
func (c *ElabClient) CreateUser(u DirectoryUser, teamID int) (int, error) {
	payload := map[string]any{
		"firstname": u.FirstName,
		"lastname":  u.LastName,
		"email":     u.Email,
		"orgid":     u.UniID,
	}
	if teamID > 0 {
		payload["team"] = teamID
	}
	rs, _, err := c.do(http.MethodPost, c.endpoint("users"), payload)
	if err != nil {
		return 0, fmt.Errorf("creating user %s: %w", u.Email, err)
	}
	location := rs.Header.Get("Location")
	id, convErr := strconv.Atoi(location[strings.LastIndex(location, "/")+1:])
	if location == "" || convErr != nil {
		return 0, fmt.Errorf("%w: creating user %s, location %q", ErrNoUserID, u.Email, location)
	}
	c.log.Info().Str("email", u.Email).Int("userid", id).Msg("user created")
	created := &RemoteUser{
		ID:        id,
		UniID:     u.UniID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
	if teamID > 0 {
		created.Teams = []TeamMembership{{ID: teamID, Usergroup: GroupUser}}
	}
	c.users = append(c.users, created)
	return id, nil
}

// EnsureUser resolves a directory user to a remote account, creating or
// unarchiving as needed. The second return reports whether this call
// unarchived the account, so the caller can undo the fallback-team
// reference a previous removal left behind.
func (c *ElabClient) EnsureUser(u DirectoryUser, teamID int) (int, bool, error) {
	existing, ok := c.UserByUniID(u.UniID)
	if !ok {
		c.log.Info().Str("email", u.Email).Msg("user not found, creating")
		id, err := c.CreateUser(u, teamID)
		return id, false, err
	}
	if existing.IsArchived() {
		c.log.Info().Str("email", u.Email).Msg("user is archived, unarchiving")
		if _, err := c.ToggleArchived(existing.ID); err != nil {
			return 0, false, err
		}
		return existing.ID, true, nil
	}
	return existing.ID, false, nil
}

// ToggleArchived flips the archived state and returns the updated record.
func (c *ElabClient) ToggleArchived(userID int) (*RemoteUser, error) {
	u, err := c.patchUser(userID, patchArchiveToggle())
	if err != nil {
		return nil, fmt.Errorf("toggling archived for user %d: %w", userID, err)
	}
	return u, nil
}

// AddUserToTeam references the user into the team. Memberships already in
// the snapshot are not re-sent; the remote rejects duplicate references.
func (c *ElabClient) AddUserToTeam(userID, teamID int) error {
	if u, ok := c.userByID(userID); ok && u.membership(teamID) != nil {
		return nil
	}
	if _, err := c.patchUser(userID, patchAddToTeam(teamID)); err != nil {
		return fmt.Errorf("adding user %d to team %d: %w", userID, teamID, err)
	}
	return nil
}

// RemoveUserFromTeam unreferences the user from the team. A user must stay
// referenced by at least one team, so a last membership is first replaced by
// the fallback team and the account archived afterwards.
func (c *ElabClient) RemoveUserFromTeam(userID, teamID int) error {
	u, ok := c.userByID(userID)
	if !ok {
		return fmt.Errorf("removing user %d from team %d: %w", userID, teamID, ErrUserNotFound)
	}
	if len(u.Teams) == 1 {
		fallbackID, err := c.FallbackTeamID()
		if err != nil {
			return err
		}
		if err = c.AddUserToTeam(userID, fallbackID); err != nil {
			return err
		}
		if _, err = c.patchUser(userID, patchUnreference(teamID)); err != nil {
			return fmt.Errorf("unreferencing user %d from team %d: %w", userID, teamID, err)
		}
		if _, err = c.ToggleArchived(userID); err != nil {
			return err
		}
		c.log.Info().Int("userid", userID).Msg("user archived after losing last team")
		return nil
	}
	if _, err := c.patchUser(userID, patchUnreference(teamID)); err != nil {
		return fmt.Errorf("unreferencing user %d from team %d: %w", userID, teamID, err)
	}
	return nil
}

// RemoveFromFallbackTeam undoes the parking reference an earlier removal
// created, typically right after unarchiving a returning user.
func (c *ElabClient) RemoveFromFallbackTeam(userID int) error {
	id, err := c.FallbackTeamID()
	if err != nil {
		return err
	}
	return c.RemoveUserFromTeam(userID, id)
}

// FallbackTeamID resolves the reserved fallback team once per run.
func (c *ElabClient) FallbackTeamID() (int, error) {
	if c.fallbackTeamID != 0 {
		return c.fallbackTeamID, nil
	}
	id, err := c.TeamIDByKey(FallbackTeamKey)
	if err != nil {
		return 0, err
	}
	c.fallbackTeamID = id
	return id, nil
}

// TeamIDByKey resolves a whitelist group name against the team listing's
// orgid field.
func (c *ElabClient) TeamIDByKey(key string) (int, error) {
	_, data, err := c.do(http.MethodGet, c.endpoint("teams"), nil)
	if err != nil {
		return 0, fmt.Errorf("listing teams: %w", err)
	}
	var teams []Team
	if err = json.Unmarshal(data, &teams); err != nil {
		return 0, fmt.Errorf("decoding team listing: %w", err)
	}
	for _, t := range teams {
		if t.OrgID == key {
			return t.ID, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrTeamNotFound, key)
}

// TeamMembers scans the snapshot for members of the team. The remote has no
// roster endpoint, so this never issues a request.
func (c *ElabClient) TeamMembers(teamID int) []*RemoteUser {
	var members []*RemoteUser
	for _, u := range c.users {
		if u.membership(teamID) != nil {
			members = append(members, u)
		}
	}
	return members
}

// patchUser sends one PATCH action and swaps the snapshot entry for the
// authoritative record the remote returned.
func (c *ElabClient) patchUser(userID int, p userPatch) (*RemoteUser, error) {
	_, data, err := c.do(http.MethodPatch, c.endpoint("users", strconv.Itoa(userID)), p.patchBody())
	if err != nil {
		return nil, err
	}
	var updated RemoteUser
	if err = json.Unmarshal(data, &updated); err != nil {
		return nil, fmt.Errorf("decoding patch response for user %d: %w", userID, err)
	}
	c.replaceCached(&updated)
	return &updated, nil
}

func (c *ElabClient) replaceCached(u *RemoteUser) {
	for i, cached := range c.users {
		if cached.ID == u.ID {
			c.users[i] = u
			return
		}
	}
	c.users = append(c.users, u)
}
