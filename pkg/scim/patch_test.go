package scim

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func patchRequest(t *testing.T, body string) *PatchRequest {
	t.Helper()
	var rq PatchRequest
	require.NoError(t, json.Unmarshal([]byte(body), &rq))
	return &rq
}

func Test_ParseMemberPatches(t *testing.T) {
	var tests = []struct {
		name string
		body string
		fn   func(t *testing.T, patches []MemberPatch, err error)
	}{
		{
			"replace members",
			`{"schemas":["urn:ietf:params:scim:api:messages:2.0:PatchOp"],
			  "Operations":[{"op":"replace","path":"members",
			  "value":[{"value":"a@b.com"},{"value":"c@b.com"}]}]}`,
			func(t *testing.T, patches []MemberPatch, err error) {
				require.NoError(t, err)
				require.Len(t, patches, 1)
				require.Equal(t, PatchReplace, patches[0].Kind)
				require.Len(t, patches[0].Members, 2)
				require.Equal(t, "a@b.com", patches[0].Members[0].Value)
			},
		},
		{
			"add single member object",
			`{"Operations":[{"op":"Add","path":"members","value":{"value":"a@b.com"}}]}`,
			func(t *testing.T, patches []MemberPatch, err error) {
				require.NoError(t, err)
				require.Equal(t, PatchAdd, patches[0].Kind)
				require.Equal(t, "a@b.com", patches[0].Members[0].Value)
			},
		},
		{
			"remove without value clears membership",
			`{"Operations":[{"op":"remove","path":"members"}]}`,
			func(t *testing.T, patches []MemberPatch, err error) {
				require.NoError(t, err)
				require.Equal(t, PatchRemove, patches[0].Kind)
				require.Empty(t, patches[0].Members)
			},
		},
		{
			"whole resource value shape",
			`{"Operations":[{"op":"replace","value":{"members":[{"value":"a@b.com"}]}}]}`,
			func(t *testing.T, patches []MemberPatch, err error) {
				require.NoError(t, err)
				require.Equal(t, PatchReplace, patches[0].Kind)
				require.Len(t, patches[0].Members, 1)
			},
		},
		{
			"unsupported path is rejected",
			`{"Operations":[{"op":"replace","path":"displayName","value":"x"}]}`,
			func(t *testing.T, patches []MemberPatch, err error) {
				require.Error(t, err)
				require.Contains(t, err.Error(), "displayName")
			},
		},
		{
			"unsupported op is rejected",
			`{"Operations":[{"op":"move","path":"members","value":[]}]}`,
			func(t *testing.T, patches []MemberPatch, err error) {
				require.Error(t, err)
				require.Contains(t, err.Error(), "move")
			},
		},
		{
			"empty operations",
			`{"Operations":[]}`,
			func(t *testing.T, patches []MemberPatch, err error) {
				require.Error(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patches, err := ParseMemberPatches(patchRequest(t, tt.body))
			tt.fn(t, patches, err)
		})
	}
}
