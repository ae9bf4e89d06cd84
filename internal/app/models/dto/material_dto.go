package dto

// CreateMaterialRequest is bound from a multipart form; files arrive as "files"
type CreateMaterialRequest struct {
	Title       string   `form:"title" binding:"required,max=200"`
	Description string   `form:"description" binding:"max=10000"`
	Links       []string `form:"links" binding:"omitempty,dive,url"`
}

// UpdateMaterialRequest updates a material. Omitted fields are left unchanged.
type UpdateMaterialRequest struct {
	Title       *string   `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string   `json:"description" binding:"omitempty,max=10000"`
	Links       *[]string `json:"links" binding:"omitempty,dive,url"`
}
