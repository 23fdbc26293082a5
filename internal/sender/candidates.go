package sender

import (
	"strings"

	"github.com/adsdsdsdad/uMBLER01/internal/model"
)

// view flattens the optional nested payload into zero-valued structs so
// candidate accessors never deal with nil.
type view struct {
	last       model.LastMessage
	member     model.Member
	org        model.Member
	contact    model.Contact
	agent      model.Member
	assignedTo model.Member
	owner      model.Member
}

func newView(c *model.ChatContent) *view {
	v := &view{}
	if c == nil {
		return v
	}
	if c.LastMessage != nil {
		v.last = *c.LastMessage
		if c.LastMessage.Member != nil {
			v.member = *c.LastMessage.Member
		}
	}
	if c.OrganizationMember != nil {
		v.org = *c.OrganizationMember
	}
	if c.Contact != nil {
		v.contact = *c.Contact
	}
	if c.Agent != nil {
		v.agent = *c.Agent
	}
	if c.AssignedTo != nil {
		v.assignedTo = *c.AssignedTo
	}
	if c.Owner != nil {
		v.owner = *c.Owner
	}
	return v
}

func (v *view) body() string {
	if v.last.Content == nil || *v.last.Content == "" {
		return PlaceholderAudio
	}
	return *v.last.Content
}

type candidate struct {
	field string
	value func(v *view) string
}

// agentNameCandidates is evaluated left to right; the first non-empty value wins.
var agentNameCandidates = []candidate{
	{"LastMessage.Member.Name", func(v *view) string { return v.member.Name }},
	{"LastMessage.Member.DisplayName", func(v *view) string { return v.member.DisplayName }},
	{"LastMessage.Member.FullName", func(v *view) string { return v.member.FullName }},
	{"OrganizationMember.Name", func(v *view) string { return v.org.Name }},
	{"OrganizationMember.DisplayName", func(v *view) string { return v.org.DisplayName }},
	{"OrganizationMember.FullName", func(v *view) string { return v.org.FullName }},
	{"LastMessage.Author", func(v *view) string { return string(v.last.Author) }},
	{"LastMessage.Sender", func(v *view) string { return string(v.last.Sender) }},
	{"LastMessage.From", func(v *view) string { return string(v.last.From) }},
	{"LastMessage.User", func(v *view) string { return string(v.last.User) }},
	{"Agent.Name", func(v *view) string { return v.agent.Name }},
	{"AssignedTo.Name", func(v *view) string { return v.assignedTo.Name }},
	{"Owner.Name", func(v *view) string { return v.owner.Name }},
	{"LastMessage.Member.FirstName", func(v *view) string { return v.member.FirstName }},
	{"LastMessage.Member.Username", func(v *view) string { return v.member.Username }},
	{"OrganizationMember.FirstName", func(v *view) string { return v.org.FirstName }},
	{"OrganizationMember.Username", func(v *view) string { return v.org.Username }},
}

// assignedAgentCandidates resolves the agent-of-record for customer messages.
var assignedAgentCandidates = []candidate{
	{"OrganizationMember.Name", func(v *view) string { return v.org.Name }},
	{"OrganizationMember.DisplayName", func(v *view) string { return v.org.DisplayName }},
	{"OrganizationMember.FullName", func(v *view) string { return v.org.FullName }},
	{"OrganizationMember.FirstName", func(v *view) string { return v.org.FirstName }},
	{"OrganizationMember.Username", func(v *view) string { return v.org.Username }},
}

func firstNonEmpty(v *view, candidates []candidate) (string, string) {
	for _, c := range candidates {
		if s := strings.TrimSpace(c.value(v)); s != "" {
			return s, c.field
		}
	}
	return "", ""
}

// AgentOfRecord resolves the assigned agent name from a chat snapshot, as used
// for transfer events. ok is false when only the placeholder is available.
func AgentOfRecord(c *model.ChatContent) (name string, ok bool) {
	name, _ = firstNonEmpty(newView(c), assignedAgentCandidates)
	if name == "" {
		return PlaceholderSystem, false
	}
	return name, true
}
