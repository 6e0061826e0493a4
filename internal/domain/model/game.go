package model

// Game identifies a supported remote service and carries the endpoint and
// signing constants its API requires. Games come from the static catalog
// file and are read-only at runtime.
type Game struct {
	Name          string // Catalog key, e.g. "endfield".
	DisplayName   string
	BaseURL       string // Web API root, e.g. "https://zonai.skport.com/web/v1".
	APIBaseURL    string // Signed game API root, e.g. "https://zonai.skport.com/api/v1".
	OAuthURL      string // OAuth grant root, e.g. "https://as.gryphline.com".
	StatusPath    string // Attendance status path relative to BaseURL.
	ClaimPath     string // Attendance claim path relative to BaseURL.
	RequiredToken TokenKind
	AppCode       string // OAuth application code for the grant call.
	GameID        string // Numeric game id prefixed to the role binding header.
}
