package dto

type CatalogEntryResponse struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// CatalogsResponse carries every selectable list of the registration form.
type CatalogsResponse struct {
	Languages   []CatalogEntryResponse `json:"languages"`
	Specialties []CatalogEntryResponse `json:"specialties"`
	Courts      []CatalogEntryResponse `json:"courts"`
}

type GetCatalogRequest struct {
	Kind string `uri:"kind" binding:"required,oneof=languages specialties courts"`
}
