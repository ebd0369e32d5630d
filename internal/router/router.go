// Package router decides which Slack destinations hear about an event and
// renders the line they receive.
package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gerrit-ai-review/gerrit-notifier/internal/config"
	"github.com/gerrit-ai-review/gerrit-notifier/internal/events"
)

// DestinationKind separates broadcast channels from direct messages
type DestinationKind int

const (
	Channel DestinationKind = iota
	User
)

// Destination is a delivery target
type Destination struct {
	Kind DestinationKind
	Name string
}

// String renders the Slack address: #channel or @handle
func (d Destination) String() string {
	if d.Kind == User {
		return "@" + d.Name
	}
	return "#" + d.Name
}

// MessageKind selects a template
type MessageKind int

const (
	MsgPatchsetCreated MessageKind = iota
	MsgApproved
	MsgTentativelyApproved
	MsgRejected
	MsgNoScore
	MsgComment
	MsgMerged
)

// PrimaryMessage maps a record's primary kind onto its template.
// ok is false for KindNone.
func PrimaryMessage(k events.Kind) (MessageKind, bool) {
	switch k {
	case events.KindPatchsetCreated:
		return MsgPatchsetCreated, true
	case events.KindApproved:
		return MsgApproved, true
	case events.KindTentativelyApproved:
		return MsgTentativelyApproved, true
	case events.KindRejected:
		return MsgRejected, true
	case events.KindNoScore:
		return MsgNoScore, true
	}
	return 0, false
}

// Router is immutable after construction and safe for concurrent use.
type Router struct {
	channels map[string]config.ChannelRule
	names    []string
	users    map[string]string
	icons    config.Icons
	br       string
}

// New creates a router over the loaded routing configuration
func New(routing config.RoutingConfig, msgs config.MessagesConfig) *Router {
	r := &Router{
		channels: make(map[string]config.ChannelRule, len(routing.Channels)),
		users:    make(map[string]string, len(routing.Users)),
		icons:    msgs.Icons,
		br:       msgs.LineBreak,
	}
	for name, rule := range routing.Channels {
		name = strings.TrimPrefix(strings.TrimSpace(name), "#")
		r.channels[name] = rule
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	for k, v := range routing.Users {
		r.users[strings.ToLower(k)] = v
	}
	return r
}

// DestinationsFor returns the channels interested in project or owner,
// sorted by name. An empty result means the event is dropped.
func (r *Router) DestinationsFor(project, owner string) []Destination {
	var out []Destination
	for _, name := range r.names {
		rule := r.channels[name]
		if matches(rule.Projects, project, false) || matches(rule.Owners, owner, true) {
			out = append(out, Destination{Kind: Channel, Name: name})
		}
	}
	return out
}

func matches(list []string, v string, fold bool) bool {
	if v == "" {
		return false
	}
	for _, item := range list {
		item = strings.TrimSpace(item)
		if item == "*" || item == v || (fold && strings.EqualFold(item, v)) {
			return true
		}
	}
	return false
}

// AllChannels returns every configured channel
func (r *Router) AllChannels() []Destination {
	out := make([]Destination, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, Destination{Kind: Channel, Name: name})
	}
	return out
}

// DirectDestinationFor resolves a Gerrit user to a direct message target
func (r *Router) DirectDestinationFor(user string) Destination {
	return Destination{Kind: User, Name: r.handle(user)}
}

func (r *Router) handle(user string) string {
	if h, ok := r.users[strings.ToLower(user)]; ok && h != "" {
		return strings.TrimPrefix(h, "@")
	}
	return user
}

// DisplayName returns how an account is shown in messages
func (r *Router) DisplayName(a events.Account) string {
	if a.Username != "" {
		if h, ok := r.users[strings.ToLower(a.Username)]; ok && h != "" {
			return strings.TrimPrefix(h, "@")
		}
	}
	if a.Name != "" {
		return a.Name
	}
	return a.ID()
}

// Decorate prefixes the channel's emoji. Direct messages are left alone.
func (r *Router) Decorate(d Destination, msg string) string {
	if d.Kind != Channel {
		return msg
	}
	if emoji := strings.TrimSpace(r.channels[d.Name].Emoji); emoji != "" {
		return emoji + " " + msg
	}
	return msg
}

// Format renders one notification line for rec
func (r *Router) Format(kind MessageKind, rec *events.Record) string {
	br := r.br
	commit := r.commit(rec)
	patchset := fmt.Sprintf("Patch Set %d", rec.PatchSet)
	actor := r.DisplayName(rec.Actor)

	switch kind {
	case MsgPatchsetCreated:
		return fmt.Sprintf("%s patchset created. %s%s %s%s", r.icons.Patchset, br, commit, br, patchset)
	case MsgApproved:
		return fmt.Sprintf("%s %s has +2 %s%s %s%s", r.icons.Plus, actor, br, commit, br, patchset)
	case MsgTentativelyApproved:
		return fmt.Sprintf("%s %s has +1 %s%s %s%s", r.icons.Plus, actor, br, commit, br, patchset)
	case MsgRejected:
		return fmt.Sprintf("%s %s has %s %s%s %s%s", r.icons.Minus, actor, rec.Score(), br, commit, br, patchset)
	case MsgNoScore:
		return fmt.Sprintf("%s %s has no score %s%s %s%s", r.icons.NoScore, actor, br, commit, br, patchset)
	case MsgComment:
		return fmt.Sprintf("%s %s has left comments on %s%s %s%s %s%s",
			r.icons.Comment, actor, br, commit, br, patchset, br, r.flatten(rec.Comment))
	case MsgMerged:
		return fmt.Sprintf("%s was merged! %s", commit, r.icons.Merge)
	}
	return ""
}

var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// flatten replaces every line ending with the line-break token
func (r *Router) flatten(s string) string {
	return strings.ReplaceAll(newlines.Replace(s), "\n", r.br)
}

func (r *Router) commit(rec *events.Record) string {
	label := rec.Subject
	if rec.Project != "" {
		label = rec.Project + ": " + rec.Subject
	}
	if rec.URL != "" {
		return fmt.Sprintf("<%s|%s>", rec.URL, label)
	}
	return label
}
