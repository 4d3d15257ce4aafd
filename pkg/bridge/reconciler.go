// Package bridge maps SCIM user and group operations onto idempotent Mailcow
// admin-API calls. It holds no durable state: Mailcow owns mailbox and
// domain-admin state, and group membership is tracked in-process only (see
// groupIndex).
package bridge

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/MacJediWizard/scim-bridge-docker/pkg/config"
	"github.com/MacJediWizard/scim-bridge-docker/pkg/mailcow"
	"github.com/MacJediWizard/scim-bridge-docker/pkg/scim"
)

const groupsAttribute = "groups"

type Reconciler struct {
	cfg     *config.Config
	mailcow *mailcow.Client
	index   *groupIndex
	metrics *Metrics
}

func NewReconciler(cfg *config.Config, client *mailcow.Client) *Reconciler {
	return &Reconciler{
		cfg:     cfg,
		mailcow: client,
		index:   newGroupIndex(),
		metrics: NewMetrics(),
	}
}

func (r *Reconciler) Metrics() *Metrics {
	return r.metrics
}

// DeriveAddress resolves the mailbox address for a SCIM user payload: the
// first email wins; a bare userName gets the configured default domain.
func (r *Reconciler) DeriveAddress(payload *scim.UserCreate) (address string, err error) {
	if payload.UserName == "" {
		err = validationErrorf("userName is required")
		return
	}
	for _, email := range payload.Emails {
		if email.Value != "" {
			address = email.Value
			return
		}
	}
	if strings.Contains(payload.UserName, "@") {
		address = payload.UserName
		return
	}
	address = payload.UserName + "@" + r.cfg.DefaultDomain
	return
}

func localPart(address string) string {
	if at := strings.Index(address, "@"); at >= 0 {
		return address[:at]
	}
	return address
}

func displayName(payload *scim.UserCreate) string {
	if payload.Name.Formatted != "" {
		return payload.Name.Formatted
	}
	return payload.UserName
}

// CreateUser provisions a mailbox for the SCIM user. Re-creating an existing
// mailbox is a no-op success.
func (r *Reconciler) CreateUser(ctx context.Context, payload *scim.UserCreate) (user *scim.User, err error) {
	var address string
	if address, err = r.DeriveAddress(payload); err != nil {
		return
	}
	if err = r.mailcow.CreateMailbox(ctx, mailcow.CreateMailboxParams{
		Address:     address,
		DisplayName: displayName(payload),
		Password:    r.cfg.DefaultPassword,
	}); err != nil {
		return
	}
	r.metrics.UsersSynced.Add(1)
	logrus.Infof("provisioned mailbox %s for user %s", address, payload.UserName)
	user = r.userResource(address, payload)
	return
}

// ReplaceUser is create-or-update: the mailbox is provisioned if absent, and
// the member's groups attribute is re-applied from the index so accumulated
// group state survives full-sync updates.
func (r *Reconciler) ReplaceUser(ctx context.Context, id string, payload *scim.UserCreate) (user *scim.User, err error) {
	var address string
	if address, err = r.DeriveAddress(payload); err != nil {
		return
	}
	if err = r.mailcow.CreateMailbox(ctx, mailcow.CreateMailboxParams{
		Address:     address,
		DisplayName: displayName(payload),
		Password:    r.cfg.DefaultPassword,
	}); err != nil {
		return
	}
	if names := r.index.GroupNamesFor(address); len(names) > 0 {
		if err = r.mailcow.SetCustomAttribute(ctx, []string{address}, groupsAttribute, names); err != nil {
			return
		}
	}
	r.metrics.UsersSynced.Add(1)
	user = r.userResource(address, payload)
	user.ID = id
	return
}

func (r *Reconciler) userResource(address string, payload *scim.UserCreate) *scim.User {
	var emails = payload.Emails
	if len(emails) == 0 {
		emails = []scim.Email{{Value: address}}
	}
	var externalId = payload.ExternalID
	if externalId == "" {
		externalId = payload.UserName
	}
	var active = true
	if payload.Active != nil {
		active = *payload.Active
	}
	return &scim.User{
		Schemas:    []string{scim.SchemaUser},
		ID:         address,
		UserName:   payload.UserName,
		Name:       payload.Name,
		Emails:     emails,
		ExternalID: externalId,
		Active:     active,
	}
}

// GetUser reads through to Mailcow; there is no local cache.
func (r *Reconciler) GetUser(ctx context.Context, id string) (user *scim.User, err error) {
	var box *mailcow.Mailbox
	if box, err = r.mailcow.GetMailbox(ctx, id); err != nil {
		if err == mailcow.ErrNotFound {
			err = ErrNotFound
		}
		return
	}
	user = mailboxResource(box)
	return
}

func (r *Reconciler) ListUsers(ctx context.Context) (users []scim.User, err error) {
	var boxes []mailcow.Mailbox
	if boxes, err = r.mailcow.ListMailboxes(ctx, r.cfg.DefaultDomain); err != nil {
		return
	}
	users = make([]scim.User, 0, len(boxes))
	for i := range boxes {
		users = append(users, *mailboxResource(&boxes[i]))
	}
	return
}

func mailboxResource(box *mailcow.Mailbox) *scim.User {
	var name = box.Name
	if name == "" {
		name = box.Username
	}
	return &scim.User{
		Schemas:    []string{scim.SchemaUser},
		ID:         box.Username,
		UserName:   box.Username,
		Name:       scim.Name{Formatted: name},
		Emails:     []scim.Email{{Value: box.Username}},
		ExternalID: box.Username,
		Active:     box.Active > 0,
	}
}

// CreateGroup records the group and pushes its membership onto every member's
// mailbox. Groups have no Mailcow object of their own; the id is
// bridge-assigned unless the provider supplied an externalId.
func (r *Reconciler) CreateGroup(ctx context.Context, payload *scim.GroupCreate) (group *scim.Group, err error) {
	if payload.DisplayName == "" {
		err = validationErrorf("displayName is required")
		return
	}
	var id = payload.ExternalID
	if id == "" {
		id = uuid.NewString()
	}
	return r.syncGroup(ctx, id, payload.DisplayName, memberValues(payload.Members))
}

// ReplaceGroup applies full-replace membership semantics. An unknown id is
// treated as create-with-id: Authentik PUTs groups it believes exist.
func (r *Reconciler) ReplaceGroup(ctx context.Context, id string, payload *scim.GroupCreate) (group *scim.Group, err error) {
	if payload.DisplayName == "" {
		err = validationErrorf("displayName is required")
		return
	}
	return r.syncGroup(ctx, id, payload.DisplayName, memberValues(payload.Members))
}

// PatchGroup applies SCIM PatchOp operations to the indexed membership and
// reconciles the result. Only the "members" path is patchable.
func (r *Reconciler) PatchGroup(ctx context.Context, id string, rq *scim.PatchRequest) (group *scim.Group, err error) {
	var patches []scim.MemberPatch
	if patches, err = scim.ParseMemberPatches(rq); err != nil {
		err = &ValidationError{Detail: err.Error()}
		return
	}

	name, members, ok := r.index.Lookup(id)
	if !ok {
		err = ErrNotFound
		return
	}

	for _, p := range patches {
		switch p.Kind {
		case scim.PatchAdd:
			for _, m := range p.Members {
				members.Add(m.Value)
			}
		case scim.PatchRemove:
			if len(p.Members) == 0 {
				members = NewSet[string]()
				continue
			}
			for _, m := range p.Members {
				members.Delete(m.Value)
			}
		case scim.PatchReplace:
			members = NewSet[string]()
			for _, m := range p.Members {
				members.Add(m.Value)
			}
		}
	}

	return r.syncGroup(ctx, id, name, members)
}

// GetGroup serves from the index. Unknown ids yield an empty synthetic group,
// which keeps identity providers probing for groups during sync happy.
func (r *Reconciler) GetGroup(id string) *scim.Group {
	name, members, ok := r.index.Lookup(id)
	if !ok {
		return &scim.Group{
			Schemas:     []string{scim.SchemaGroup},
			ID:          id,
			DisplayName: id,
			Members:     []scim.GroupMember{},
		}
	}
	return groupResource(id, name, members)
}

// ListGroups returns the groups synthesized from operations seen by this
// process. A cold start yields an empty list.
func (r *Reconciler) ListGroups() (groups []scim.Group) {
	groups = make([]scim.Group, 0)
	for _, id := range r.index.All() {
		if name, members, ok := r.index.Lookup(id); ok {
			groups = append(groups, *groupResource(id, name, members))
		}
	}
	return
}

func memberValues(members []scim.GroupMember) Set[string] {
	var s = NewSet[string]()
	for _, m := range members {
		if m.Value != "" {
			s.Add(m.Value)
		}
	}
	return s
}

// syncGroup is the shared reconciliation path for POST, PUT and PATCH on
// groups: diff the new membership against the index, rewrite the groups
// attribute of every affected member, and apply domain-admin side effects if
// this is the distinguished admin group. All affected members are attempted
// even after a failure; errors are aggregated and Mailcow calls already made
// are not undone, but a failed sync leaves the index on the old membership so
// the provider's retry replays the whole delta.
func (r *Reconciler) syncGroup(ctx context.Context, id, name string, newMembers Set[string]) (group *scim.Group, err error) {
	oldName, oldMembers, known := r.index.Lookup(id)
	if !known {
		oldMembers = NewSet[string]()
	}
	var added = newMembers.Minus(oldMembers)
	var removed = oldMembers.Minus(newMembers)

	// The index is updated first so GroupNamesFor reflects the new state
	// while attributes are rewritten.
	r.index.Set(id, name, newMembers)

	var errs *multierror.Error
	var affected = newMembers.Copy()
	for m := range removed {
		affected.Add(m)
	}
	for _, member := range SortedStrings(affected) {
		names := r.index.GroupNamesFor(member)
		if er1 := r.mailcow.SetCustomAttribute(ctx, []string{member}, groupsAttribute, names); er1 != nil {
			logrus.Warnf("group %q: set %s attribute for %s: %v", name, groupsAttribute, member, er1)
			errs = multierror.Append(errs, er1)
		}
	}

	if name == r.cfg.DomainAdminGroup {
		for _, member := range SortedStrings(added) {
			if er1 := r.mailcow.AddDomainAdmin(ctx, localPart(member), r.cfg.DefaultDomain, r.cfg.DefaultPassword); er1 != nil {
				logrus.Warnf("group %q: promote %s to domain admin: %v", name, member, er1)
				errs = multierror.Append(errs, er1)
				continue
			}
			r.metrics.DomainAdminsCreated.Add(1)
			logrus.Infof("promoted %s to domain admin", member)
		}
		for _, member := range SortedStrings(removed) {
			if er1 := r.mailcow.DeleteDomainAdmin(ctx, localPart(member)); er1 != nil {
				logrus.Warnf("group %q: demote %s from domain admin: %v", name, member, er1)
				errs = multierror.Append(errs, er1)
				continue
			}
			r.metrics.DomainAdminsDeleted.Add(1)
			logrus.Infof("demoted %s from domain admin", member)
		}
	}

	if err = errs.ErrorOrNil(); err != nil {
		// Restore the pre-sync membership so an identical retry diffs the
		// same delta and re-attempts the failed calls instead of seeing an
		// empty diff and reporting success.
		if known {
			r.index.Set(id, oldName, oldMembers)
		} else {
			r.index.Delete(id)
		}
		err = fmt.Errorf("sync group %q: %w", name, err)
		return
	}
	r.metrics.GroupsSynced.Add(1)
	group = groupResource(id, name, newMembers)
	return
}

func groupResource(id, name string, members Set[string]) *scim.Group {
	var refs = make([]scim.GroupMember, 0, len(members))
	for _, m := range SortedStrings(members) {
		refs = append(refs, scim.GroupMember{Value: m})
	}
	return &scim.Group{
		Schemas:     []string{scim.SchemaGroup},
		ID:          id,
		DisplayName: name,
		Members:     refs,
	}
}
