package accounts

// LinkState is the progress of one linking attempt.
type LinkState string

const (
	LinkIdle               LinkState = "idle"
	LinkObtainingLinkToken LinkState = "obtaining_link_token"
	LinkReadyToLink        LinkState = "ready_to_link"
	LinkLinking            LinkState = "linking"
	LinkLinked             LinkState = "linked"
	LinkFailed             LinkState = "failed"
)

// LinkStep is the screen the linking UI should show.
type LinkStep string

const (
	StepNone              LinkStep = ""
	StepSelectInstitution LinkStep = "select_institution"
	StepAuthenticate      LinkStep = "authenticate"
	StepSuccess           LinkStep = "success"
	StepFailure           LinkStep = "failure"
)

type Institution struct {
	ID   string
	Name string
}

// LinkSession is the in-progress linking flow. It is never persisted and is
// reset by CancelLinking or the next InitializeLink.
type LinkSession struct {
	// ID identifies the attempt in logs.
	ID string

	State LinkState
	Step  LinkStep

	// LinkToken is short-lived and only set once the backend issued one.
	LinkToken string

	Institution *Institution

	// LinkedAccountID is set when the attempt produced an account.
	LinkedAccountID string
}

func idleLinkSession() LinkSession {
	return LinkSession{State: LinkIdle}
}

// HasLinkToken reports whether the UI may open the provider's link flow.
func (l LinkSession) HasLinkToken() bool {
	return l.LinkToken != ""
}
