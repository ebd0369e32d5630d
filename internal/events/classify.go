package events

// Kind is the primary classification of a record. Exactly one applies.
type Kind int

const (
	KindNone Kind = iota
	KindPatchsetCreated
	KindApproved            // Code-Review +2
	KindTentativelyApproved // Code-Review +1
	KindRejected            // -1 or -2 on any label
	KindNoScore
)

var kindNames = map[Kind]string{
	KindNone:                "none",
	KindPatchsetCreated:     "patchset-created",
	KindApproved:            "approved",
	KindTentativelyApproved: "tentatively-approved",
	KindRejected:            "rejected",
	KindNoScore:             "no-score",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

type rule struct {
	kind  Kind
	match func(*Record) bool
}

// primaryRules is evaluated in order; the first match wins.
var primaryRules = []rule{
	{KindPatchsetCreated, (*Record).PatchsetCreated},
	{KindApproved, (*Record).CodeReviewApproved},
	{KindTentativelyApproved, (*Record).CodeReviewTentativelyApproved},
	{KindRejected, func(r *Record) bool { return r.Minus1ed() || r.Minus2ed() }},
	{KindNoScore, (*Record).NoScore},
}

func classify(r *Record) Kind {
	for _, rl := range primaryRules {
		if rl.match(r) {
			return rl.kind
		}
	}
	return KindNone
}
