package events

// Event represents a Gerrit stream-events JSON line
type Event struct {
	Type           string     `json:"type"`
	Change         *Change    `json:"change,omitempty"`
	PatchSet       *PatchSet  `json:"patchSet,omitempty"`
	Author         *Account   `json:"author,omitempty"`
	Uploader       *Account   `json:"uploader,omitempty"`
	Submitter      *Account   `json:"submitter,omitempty"`
	Approvals      []Approval `json:"approvals,omitempty"`
	Comment        string     `json:"comment,omitempty"`
	EventCreatedOn int64      `json:"eventCreatedOn"`
}

// Change represents change information in an event
type Change struct {
	Project string   `json:"project"`
	Branch  string   `json:"branch"`
	Number  int      `json:"number"`
	Subject string   `json:"subject"`
	Owner   *Account `json:"owner,omitempty"`
	URL     string   `json:"url,omitempty"`
}

// PatchSet represents patchset information in an event
type PatchSet struct {
	Number   int      `json:"number"`
	Ref      string   `json:"ref"`
	Revision string   `json:"revision"`
	Uploader *Account `json:"uploader,omitempty"`
}

// Account represents a Gerrit user account
type Account struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
}

// Approval is a single label vote attached to an event.
//
// Gerrit encodes values as strings ("2", "-1"). OldValue is only present on
// servers that report every label and mark the ones changed by this event.
type Approval struct {
	Type        string  `json:"type"`
	Description string  `json:"description,omitempty"`
	Value       string  `json:"value"`
	OldValue    *string `json:"oldValue,omitempty"`
}

// Stream event types handled by the notifier
const (
	TypePatchsetCreated = "patchset-created"
	TypeCommentAdded    = "comment-added"
	TypeChangeMerged    = "change-merged"
)

// Label names with special meaning
const (
	LabelCodeReview = "Code-Review"
)

// ID returns the best human identifier for the account
func (a *Account) ID() string {
	if a == nil {
		return ""
	}
	if a.Username != "" {
		return a.Username
	}
	if a.Email != "" {
		return a.Email
	}
	return a.Name
}
