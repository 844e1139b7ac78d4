package openai

// Dish is one recommended dish in a summarized result.
type Dish struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// BestDishes is the structured output contract for the summarizer.
type BestDishes struct {
	BestDishes []Dish `json:"bestDishes"`
}
