package definitions

type ModelConfig struct {
	BaseURL   string
	ModelName string
	APIKey    string

	MaxTokens   int
	Temperature float32
}
