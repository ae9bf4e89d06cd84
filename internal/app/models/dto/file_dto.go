package dto

// FileResponse describes a stored upload. The url is what attachments reference.
type FileResponse struct {
	Name     string `json:"name" example:"lecture_slides.pdf"`                         // Original file name
	URL      string `json:"url" example:"/uploads/materials/3/8d3e-lecture_slides.pdf"` // Public URL of the file
	Size     int64  `json:"size" example:"1048576"`                                     // Size in bytes
	MimeType string `json:"mimeType" example:"application/pdf"`                         // Detected MIME type
}
