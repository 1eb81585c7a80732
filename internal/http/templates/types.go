package templates

// CharacterView is one row of the rendered roster table.
type CharacterView struct {
	ID            int64
	Owner         string
	Level         int
	Role          string
	CharacterName string
	Race          string
	Alignment     string
}

// RosterPageData bundles the values rendered on the roster page.
type RosterPageData struct {
	Title      string
	Characters []CharacterView
}

// ErrorPageData holds information for rendering an error view.
type ErrorPageData struct {
	Title       string
	StatusLabel string
	Message     string
}
