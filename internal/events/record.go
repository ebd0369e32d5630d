package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrEmptyLine      = errors.New("empty event line")
	ErrMalformedEvent = errors.New("malformed event")
)

// Record is the normalized, immutable form of one stream event.
// Every predicate is computed once by the Classifier.
type Record struct {
	Type         string
	Project      string
	Branch       string
	Owner        string
	Actor        Account
	ChangeNumber int
	Subject      string
	URL          string
	PatchSet     int
	Revision     string
	Comment      string
	Approvals    []Approval // votes cast by this event; nil when none

	Kind      Kind
	Commented bool
	Merged    bool
	Human     bool

	Raw []byte
}

// Classifier turns raw stream lines into Records.
type Classifier struct {
	bots map[string]bool
}

// NewClassifier creates a classifier. Accounts whose username or email
// appears in bots are treated as automated.
func NewClassifier(bots []string) *Classifier {
	c := &Classifier{bots: make(map[string]bool, len(bots))}
	for _, b := range bots {
		b = strings.ToLower(strings.TrimSpace(b))
		if b != "" {
			c.bots[b] = true
		}
	}
	return c
}

// Parse decodes one JSON line into a classified Record.
func (c *Classifier) Parse(line []byte) (*Record, error) {
	if len(strings.TrimSpace(string(line))) == 0 {
		return nil, ErrEmptyLine
	}

	var ev Event
	if err := json.Unmarshal(line, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if ev.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	}

	raw := make([]byte, len(line))
	copy(raw, line)
	return c.Classify(ev, raw), nil
}

// Classify builds a Record from an already decoded event.
func (c *Classifier) Classify(ev Event, raw []byte) *Record {
	r := &Record{
		Type:      ev.Type,
		Comment:   stripCommentHeader(ev.Comment),
		Approvals: castApprovals(ev.Approvals),
		Raw:       raw,
	}

	if ev.Change != nil {
		r.Project = ev.Change.Project
		r.Branch = ev.Change.Branch
		r.ChangeNumber = ev.Change.Number
		r.Subject = ev.Change.Subject
		r.URL = ev.Change.URL
		r.Owner = ev.Change.Owner.ID()
	}
	if ev.PatchSet != nil {
		r.PatchSet = ev.PatchSet.Number
		r.Revision = ev.PatchSet.Revision
	}
	if actor := actorOf(ev); actor != nil {
		r.Actor = *actor
	}

	r.Human = c.isHuman(r.Actor)
	r.Kind = classify(r)
	r.Commented = r.Type == TypeCommentAdded && r.Human && r.Comment != ""
	r.Merged = r.Type == TypeChangeMerged
	return r
}

func (c *Classifier) isHuman(a Account) bool {
	if a.Name == "" && a.Username == "" && a.Email == "" {
		return false
	}
	if c.bots[strings.ToLower(a.Username)] || c.bots[strings.ToLower(a.Email)] {
		return false
	}
	return true
}

func actorOf(ev Event) *Account {
	switch ev.Type {
	case TypeCommentAdded:
		return ev.Author
	case TypePatchsetCreated:
		if ev.Uploader != nil {
			return ev.Uploader
		}
		if ev.PatchSet != nil {
			return ev.PatchSet.Uploader
		}
	case TypeChangeMerged:
		return ev.Submitter
	}
	return ev.Author
}

// castApprovals keeps the votes this event changed. When no approval
// carries oldValue the server only lists changed votes, so all are kept.
func castApprovals(in []Approval) []Approval {
	if len(in) == 0 {
		return nil
	}

	reportsOld := false
	for _, a := range in {
		if a.OldValue != nil {
			reportsOld = true
			break
		}
	}

	var out []Approval
	for _, a := range in {
		if reportsOld && (a.OldValue == nil || *a.OldValue == a.Value) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// "Patch Set 3: Code-Review+2" header line Gerrit prepends to comments
var commentHeader = regexp.MustCompile(`^Patch Set \d+:[^\n]*(\r?\n)*`)

func stripCommentHeader(s string) string {
	return strings.TrimSpace(commentHeader.ReplaceAllString(s, ""))
}

// PatchsetCreated reports a new patchset upload
func (r *Record) PatchsetCreated() bool { return r.Type == TypePatchsetCreated }

// CommentAdded reports a review comment event
func (r *Record) CommentAdded() bool { return r.Type == TypeCommentAdded }

// IsMerged reports a change-merged event
func (r *Record) IsMerged() bool { return r.Merged }

// IsHuman reports whether the actor is a person rather than a bot
func (r *Record) IsHuman() bool { return r.Human }

// HasComment reports a human comment with text
func (r *Record) HasComment() bool { return r.Commented }

// CodeReviewApproved reports a Code-Review +2 vote
func (r *Record) CodeReviewApproved() bool { return r.hasVote(LabelCodeReview, "2") }

// CodeReviewTentativelyApproved reports a Code-Review +1 vote
func (r *Record) CodeReviewTentativelyApproved() bool { return r.hasVote(LabelCodeReview, "1") }

// Minus1ed reports a -1 on any label
func (r *Record) Minus1ed() bool { return r.hasVote("", "-1") }

// Minus2ed reports a -2 on any label
func (r *Record) Minus2ed() bool { return r.hasVote("", "-2") }

// NoScore reports a human comment-added event without text or votes
func (r *Record) NoScore() bool {
	return r.CommentAdded() && r.Human && r.Approvals == nil && r.Comment == ""
}

// Score returns the rejection value for KindRejected records. A -1 on any
// label is reported ahead of a -2.
func (r *Record) Score() string {
	if r.Minus1ed() {
		return "-1"
	}
	return "-2"
}

// ActorID returns the username (or email, or name) of the actor
func (r *Record) ActorID() string { return r.Actor.ID() }

func (r *Record) hasVote(label, value string) bool {
	for _, a := range r.Approvals {
		if label != "" && a.Type != label {
			continue
		}
		if normalizeVote(a.Value) == value {
			return true
		}
	}
	return false
}

func normalizeVote(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "+")
}
