package dto

// VersionDTO reports the server build and release check state.
type VersionDTO struct {
	Version        string `json:"version"`
	GitTag         string `json:"gitTag"`
	BuildTime      string `json:"buildTime"`
	VersionIsNew   bool   `json:"versionIsNew"`
	VersionNewName string `json:"versionNewName"`
	VersionNewLink string `json:"versionNewLink"`
}
