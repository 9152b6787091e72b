// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

// PopupViewModel holds everything the popup page renders.
type PopupViewModel struct {
	CSRFToken string

	// Notice is a confirmation from the previous action; Error replaces the
	// page body when no forum tab can be reached.
	Notice string
	Error  string

	TabURL string

	// SummaryHTML is the sanitized Markdown rendering of the whole view.
	SummaryHTML string

	Ignored      []IgnoredUserViewModel
	LightIgnored []ThreadGroupViewModel

	UnignoreURL          string
	RemoveLightIgnoreURL string
	ResetURL             string
	ExportURL            string
	ImportURL            string
}

// IgnoredUserViewModel is one globally ignored user.
type IgnoredUserViewModel struct {
	Username string
}

// ThreadGroupViewModel is the light-ignored users of one thread.
type ThreadGroupViewModel struct {
	ThreadKey string
	ThreadURL string
	Users     []string
}
