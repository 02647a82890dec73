package dto

// ContactRequest is the public contact form payload.
type ContactRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	ProjectType string `json:"project_type"`
	Message     string `json:"message"`
}

// ContactAccepted is returned once a submission is stored.
type ContactAccepted struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}
