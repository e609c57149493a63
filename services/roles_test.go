package services

import (
	"testing"
	"time"

	"journal-review-api/models"

	"github.com/stretchr/testify/require"
)

func TestParseRoleAcceptsSynonyms(t *testing.T) {
	cases := map[string]Role{
		"author":              RoleAuthor,
		"GFJ_Author":          RoleAuthor,
		"gfj_reviewer":        RoleReviewer,
		" editor ":            RoleEditor,
		"eic":                 RoleEditorInChief,
		"Editor-In-Chief":     RoleEditorInChief,
		"gfj_managing_editor": RoleManagingEditor,
		"administrator":       RoleAdmin,
	}
	for raw, want := range cases {
		got, ok := ParseRole(raw)
		require.True(t, ok, raw)
		require.Equal(t, want, got, raw)
	}

	got, ok := ParseRole("subscriber")
	require.False(t, ok)
	require.Equal(t, RoleNone, got)
}

func TestResolveRoleIgnoresDeletedUsers(t *testing.T) {
	deleted := time.Now()
	role, ok := ResolveRole(&models.User{UserID: 1, Role: "editor", DeleteAt: &deleted})
	require.False(t, ok)
	require.Equal(t, RoleNone, role)

	role, ok = ResolveRole(nil)
	require.False(t, ok)
	require.Equal(t, RoleNone, role)

	require.False(t, HasCapability(&models.User{UserID: 1, Role: "editor", DeleteAt: &deleted}, CapViewAllManuscripts))
	require.True(t, HasCapability(&models.User{UserID: 1, Role: "gfj_editor"}, CapViewAllManuscripts))
}

func TestCapabilityTable(t *testing.T) {
	require.True(t, RoleAuthor.Can(CapSubmitManuscripts))
	require.False(t, RoleAuthor.Can(CapViewBlindedManuscripts))

	require.True(t, RoleReviewer.Can(CapViewBlindedManuscripts))
	require.False(t, RoleReviewer.Can(CapViewAuthorIdentity))
	require.False(t, RoleReviewer.Can(CapViewFullManuscripts))

	require.True(t, RoleEditor.Can(CapTriageManuscripts))
	require.True(t, RoleEditor.Can(CapViewAuthorIdentity))
	require.False(t, RoleEditor.Can(CapOverrideDecisions))

	require.True(t, RoleEditorInChief.Can(CapOverrideDecisions))
	require.True(t, RoleEditorInChief.Can(CapManageEditors))

	require.True(t, RoleManagingEditor.Can(CapViewStatistics))
	require.False(t, RoleManagingEditor.Can(CapMakeDecisions))

	for _, c := range allCapabilities {
		require.True(t, RoleAdmin.Can(c), c)
		require.False(t, RoleNone.Can(c), c)
	}
	require.Len(t, RoleAdmin.Capabilities(), len(allCapabilities))
}

func TestActorWithoutIdentityHasNoCapabilities(t *testing.T) {
	require.False(t, Actor{Role: RoleAdmin}.Can(CapViewAllManuscripts))
	require.Equal(t, Actor{}, ActorFromUser(nil))
	requireKind(t, Actor{Role: RoleEditor}.require(CapTriageManuscripts), KindUnauthorized)
}
