package scim

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PatchRequest is the wire form of a SCIM PatchOp request.
type PatchRequest struct {
	Schemas    []string         `json:"schemas"`
	Operations []PatchOperation `json:"Operations"`
}

type PatchOperation struct {
	Op    string          `json:"op"`
	Path  string          `json:"path,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// PatchOpKind is the closed set of operations the bridge understands.
type PatchOpKind int

const (
	PatchAdd PatchOpKind = iota
	PatchRemove
	PatchReplace
)

func (k PatchOpKind) String() string {
	switch k {
	case PatchAdd:
		return "add"
	case PatchRemove:
		return "remove"
	case PatchReplace:
		return "replace"
	}
	return "unknown"
}

// MemberPatch is a single validated operation on a group's members attribute.
type MemberPatch struct {
	Kind    PatchOpKind
	Members []GroupMember
}

// ParseMemberPatches validates a PatchRequest against the only attribute the
// bridge supports patching, "members". Operations naming any other path are
// rejected rather than silently dropped, so a misconfigured identity provider
// fails loudly.
func ParseMemberPatches(rq *PatchRequest) (patches []MemberPatch, err error) {
	if len(rq.Operations) == 0 {
		err = fmt.Errorf("PatchOp request contains no operations")
		return
	}
	for i, op := range rq.Operations {
		var kind PatchOpKind
		switch strings.ToLower(op.Op) {
		case "add":
			kind = PatchAdd
		case "remove":
			kind = PatchRemove
		case "replace":
			kind = PatchReplace
		default:
			err = fmt.Errorf("operation %d: unsupported op %q", i, op.Op)
			return
		}

		// Authentik omits the path on whole-resource replace; treat that the
		// same as an explicit "members" path.
		if op.Path != "" && op.Path != "members" {
			err = fmt.Errorf("operation %d: unsupported path %q, only \"members\" can be patched", i, op.Path)
			return
		}

		var members []GroupMember
		if len(op.Value) > 0 {
			if members, err = decodeMemberValue(op.Value); err != nil {
				err = fmt.Errorf("operation %d: %w", i, err)
				return
			}
		}
		if kind != PatchRemove && len(members) == 0 && len(op.Value) == 0 {
			err = fmt.Errorf("operation %d: %s on members requires a value", i, kind)
			return
		}
		patches = append(patches, MemberPatch{Kind: kind, Members: members})
	}
	return
}

// decodeMemberValue accepts the member list shapes identity providers actually
// send: a bare list of member refs, a single member ref object, or the
// whole-resource form {"members": [...]}.
func decodeMemberValue(raw json.RawMessage) (members []GroupMember, err error) {
	if err = json.Unmarshal(raw, &members); err == nil {
		return
	}
	var single GroupMember
	if err = json.Unmarshal(raw, &single); err == nil && single.Value != "" {
		members = []GroupMember{single}
		return
	}
	var wrapped struct {
		Members []GroupMember `json:"members"`
	}
	if err = json.Unmarshal(raw, &wrapped); err == nil && wrapped.Members != nil {
		members = wrapped.Members
		return
	}
	err = fmt.Errorf("value is not a member list")
	return
}
