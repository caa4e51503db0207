// pkg/catalog/schema.go
package catalog

type SourceCatalog struct {
	Version     string      `json:"version"`
	LastUpdated string      `json:"lastUpdated"`
	Sources     []SourceDef `json:"sources"`
}

type SourceDef struct {
	Name               string   `json:"name"`
	DisplayName        string   `json:"displayName"`
	Description        string   `json:"description"`
	Capabilities       []string `json:"capabilities"`
	RequiresCredential bool     `json:"requiresCredential"`
	Enabled            bool     `json:"enabled"`
	Tags               []string `json:"tags"`
}
