package entity

// Style 写作风格
type Style struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Example     string   `json:"example"`
	Custom      bool     `json:"custom"`
}
