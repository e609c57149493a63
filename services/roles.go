package services

import (
	"strings"

	"journal-review-api/models"
)

// Role is a user's single primary workflow role.
type Role string

const (
	RoleNone           Role = ""
	RoleAuthor         Role = "author"
	RoleReviewer       Role = "reviewer"
	RoleEditor         Role = "editor"
	RoleEditorInChief  Role = "editor_in_chief"
	RoleManagingEditor Role = "managing_editor"
	RoleAdmin          Role = "admin"
)

// Capability is a single permission a role may hold.
type Capability string

const (
	CapSubmitManuscripts       Capability = "submit_manuscripts"
	CapEditOwnManuscripts      Capability = "edit_own_manuscripts"
	CapViewOwnManuscripts      Capability = "view_own_manuscripts"
	CapViewAssignedManuscripts Capability = "view_assigned_manuscripts"
	CapSubmitReviews           Capability = "submit_reviews"
	CapViewBlindedManuscripts  Capability = "view_blinded_manuscripts"
	CapViewAllManuscripts      Capability = "view_all_manuscripts"
	CapTriageManuscripts       Capability = "triage_manuscripts"
	CapAssignReviewers         Capability = "assign_reviewers"
	CapMakeDecisions           Capability = "make_decisions"
	CapViewFullManuscripts     Capability = "view_full_manuscripts"
	CapViewAuthorIdentity      Capability = "view_author_identity"
	CapEditManuscripts         Capability = "edit_manuscripts"
	CapPublishArticles         Capability = "publish_articles"
	CapMakeFinalDecisions      Capability = "make_final_decisions"
	CapOverrideDecisions       Capability = "override_decisions"
	CapManageEditors           Capability = "manage_editors"
	CapManageWorkflow          Capability = "manage_workflow"
	CapViewStatistics          Capability = "view_statistics"
	CapExportData              Capability = "export_data"
	CapManageJournal           Capability = "manage_journal"
)

var allCapabilities = []Capability{
	CapSubmitManuscripts, CapEditOwnManuscripts, CapViewOwnManuscripts,
	CapViewAssignedManuscripts, CapSubmitReviews, CapViewBlindedManuscripts,
	CapViewAllManuscripts, CapTriageManuscripts, CapAssignReviewers, CapMakeDecisions,
	CapViewFullManuscripts, CapViewAuthorIdentity, CapEditManuscripts, CapPublishArticles,
	CapMakeFinalDecisions, CapOverrideDecisions, CapManageEditors,
	CapManageWorkflow, CapViewStatistics, CapExportData, CapManageJournal,
}

var editorCapabilities = []Capability{
	CapViewAllManuscripts,
	CapTriageManuscripts,
	CapAssignReviewers,
	CapMakeDecisions,
	CapViewFullManuscripts,
	CapViewAuthorIdentity,
	CapEditManuscripts,
	CapPublishArticles,
}

// capabilitiesFor is the static capability table. Every role is listed.
func capabilitiesFor(r Role) []Capability {
	switch r {
	case RoleAuthor:
		return []Capability{CapSubmitManuscripts, CapEditOwnManuscripts, CapViewOwnManuscripts}
	case RoleReviewer:
		return []Capability{CapViewAssignedManuscripts, CapSubmitReviews, CapViewBlindedManuscripts}
	case RoleEditor:
		return editorCapabilities
	case RoleEditorInChief:
		return append(append([]Capability{}, editorCapabilities...),
			CapMakeFinalDecisions, CapOverrideDecisions, CapManageEditors)
	case RoleManagingEditor:
		return []Capability{CapViewAllManuscripts, CapManageWorkflow, CapViewStatistics, CapExportData}
	case RoleAdmin:
		return allCapabilities
	case RoleNone:
		return nil
	}
	return nil
}

var roleCapabilities = buildRoleCapabilities()

func buildRoleCapabilities() map[Role]map[Capability]struct{} {
	roles := []Role{RoleAuthor, RoleReviewer, RoleEditor, RoleEditorInChief, RoleManagingEditor, RoleAdmin}
	table := make(map[Role]map[Capability]struct{}, len(roles))
	for _, role := range roles {
		set := make(map[Capability]struct{})
		for _, c := range capabilitiesFor(role) {
			set[c] = struct{}{}
		}
		table[role] = set
	}
	return table
}

var roleSynonyms = map[Role][]string{
	RoleAuthor:         {"author", "gfj_author"},
	RoleReviewer:       {"reviewer", "gfj_reviewer"},
	RoleEditor:         {"editor", "gfj_editor"},
	RoleEditorInChief:  {"editor_in_chief", "editor-in-chief", "eic", "gfj_eic"},
	RoleManagingEditor: {"managing_editor", "managing-editor", "gfj_managing_editor"},
	RoleAdmin:          {"admin", "administrator"},
}

var roleAliasToCanonical = buildRoleAliasMap()

func buildRoleAliasMap() map[string]Role {
	aliases := make(map[string]Role)
	for role, synonyms := range roleSynonyms {
		for _, alias := range synonyms {
			aliases[strings.ToLower(strings.TrimSpace(alias))] = role
		}
	}
	return aliases
}

// ParseRole maps a stored role name to a Role. Unknown names resolve to RoleNone.
func ParseRole(raw string) (Role, bool) {
	role, ok := roleAliasToCanonical[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return RoleNone, false
	}
	return role, true
}

// ResolveRole returns the user's primary workflow role. A nil, deleted or
// unrecognised user has no role.
func ResolveRole(u *models.User) (Role, bool) {
	if u == nil || u.DeleteAt != nil {
		return RoleNone, false
	}
	return ParseRole(u.Role)
}

// HasCapability reports whether the user's role grants c.
func HasCapability(u *models.User, c Capability) bool {
	role, ok := ResolveRole(u)
	if !ok {
		return false
	}
	return role.Can(c)
}

// Can reports whether the role grants c.
func (r Role) Can(c Capability) bool {
	caps, ok := roleCapabilities[r]
	if !ok {
		return false
	}
	_, ok = caps[c]
	return ok
}

// Capabilities returns the role's capability list.
func (r Role) Capabilities() []Capability {
	return append([]Capability(nil), capabilitiesFor(r)...)
}

// Actor is the identity every core operation is performed on behalf of.
type Actor struct {
	UserID uint
	Role   Role
}

// ActorFromUser builds an Actor from a directory user.
func ActorFromUser(u *models.User) Actor {
	if u == nil {
		return Actor{}
	}
	role, _ := ResolveRole(u)
	return Actor{UserID: u.UserID, Role: role}
}

// Can reports whether the actor's role grants c.
func (a Actor) Can(c Capability) bool {
	if a.UserID == 0 {
		return false
	}
	return a.Role.Can(c)
}

func (a Actor) require(c Capability) error {
	if !a.Can(c) {
		return unauthorized("missing capability %s", c)
	}
	return nil
}
