// Package sender classifies the author of an inbound chat event and resolves display names.
package sender

import (
	"strings"

	"github.com/adsdsdsdad/uMBLER01/internal/model"
)

// Placeholders used when no identity field carries a value. They are stored as-is.
const (
	PlaceholderCustomer = "Cliente"
	PlaceholderAgent    = "Atendente"
	PlaceholderSystem   = "Sistema"
	PlaceholderAudio    = "🎵 Mensagem de áudio"

	sitePhrase = "olá, vim do site do marcelino"
)

var (
	customerSources = map[string]bool{"contact": true, "customer": true}
	agentSources    = map[string]bool{"agent": true, "member": true, "organizationmember": true}
)

// Resolution is the normalized identity of an inbound message.
type Resolution struct {
	SenderType     model.SenderType
	SenderName     string
	AgentName      string
	IsSiteCustomer bool

	// MessageText is the body with the audio placeholder substituted.
	MessageText string
	// AgentIsPlaceholder is set when AgentName came from a placeholder and
	// must not replace a known agent-of-record.
	AgentIsPlaceholder bool
	// AgentNameSource names the field AgentName was taken from, for logging.
	AgentNameSource string
	// ClassifiedBy is "source" or "member_data".
	ClassifiedBy string
}

// Resolve classifies the last message of a chat snapshot. It never fails;
// missing identity data falls back to placeholders.
func Resolve(c *model.ChatContent) Resolution {
	v := newView(c)

	res := Resolution{
		MessageText: v.body(),
	}
	res.IsSiteCustomer = IsSitePhrase(res.MessageText)

	res.SenderType, res.ClassifiedBy = classify(v)

	if res.SenderType == model.SenderAgent {
		name, src := firstNonEmpty(v, agentNameCandidates)
		if name == "" {
			name, src = PlaceholderAgent, "placeholder"
			res.AgentIsPlaceholder = true
		}
		res.SenderName = name
		res.AgentName = name
		res.AgentNameSource = src
		return res
	}

	res.SenderName = strings.TrimSpace(v.contact.Name)
	if res.SenderName == "" {
		res.SenderName = PlaceholderCustomer
	}

	name, src := firstNonEmpty(v, assignedAgentCandidates)
	if name == "" {
		name, src = PlaceholderSystem, "placeholder"
		res.AgentIsPlaceholder = true
	}
	res.AgentName = name
	res.AgentNameSource = src
	return res
}

// IsSitePhrase reports whether a message body carries the marketing-site greeting.
func IsSitePhrase(text string) bool {
	return strings.Contains(strings.ToLower(text), sitePhrase)
}

func classify(v *view) (model.SenderType, string) {
	source := strings.ToLower(strings.TrimSpace(v.last.Source))
	switch {
	case customerSources[source]:
		return model.SenderCustomer, "source"
	case agentSources[source]:
		return model.SenderAgent, "source"
	}
	if hasMemberData(v) {
		return model.SenderAgent, "member_data"
	}
	return model.SenderCustomer, "member_data"
}

// hasMemberData reports whether the payload carries any agent identity for the
// message itself, or a named assigned member.
func hasMemberData(v *view) bool {
	m := v.member
	for _, s := range []string{m.Name, m.DisplayName, m.FullName, m.FirstName, m.LastName, m.Username, m.Email} {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return strings.TrimSpace(v.org.Name) != ""
}
