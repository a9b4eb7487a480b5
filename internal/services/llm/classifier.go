package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/cotalabs/cotiza/internal/models"
)

// Classifier implements interfaces.Classifier on top of the provider
// factory. A response outside the closed category set is an error; callers
// leave the category unset in that case.
type Classifier struct {
	factory *ProviderFactory
	model   string
	logger  arbor.ILogger
}

// NewClassifier creates the category classification capability.
func NewClassifier(factory *ProviderFactory, model string, logger arbor.ILogger) *Classifier {
	return &Classifier{
		factory: factory,
		model:   model,
		logger:  logger,
	}
}

type classifyResponse struct {
	Category string `json:"categoria"`
}

// Classify asks the model to place the product into exactly one category
// from models.ProductCategories.
func (c *Classifier) Classify(ctx context.Context, product *models.Product) (string, error) {
	prompt := fmt.Sprintf(
		`Classifique o produto abaixo em exatamente uma das categorias: %s.
Responda somente JSON: {"categoria": "<uma das categorias>"}

Nome: %s
Descricao: %s
URL: %s`,
		strings.Join(models.ProductCategories, ", "),
		product.Name, product.Description, product.URL,
	)

	resp, err := c.factory.GenerateContent(ctx, &ContentRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "user", Content: prompt},
		},
		OutputSchema: map[string]interface{}{
			"type":     "object",
			"required": []string{"categoria"},
			"properties": map[string]interface{}{
				"categoria": map[string]interface{}{
					"type": "string",
					"enum": models.ProductCategories,
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("classify call failed: %w", err)
	}

	var parsed classifyResponse
	if err := json.Unmarshal([]byte(extractJSON(resp.Text)), &parsed); err != nil {
		return "", fmt.Errorf("malformed classify response: %w", err)
	}

	category := strings.ToLower(strings.TrimSpace(parsed.Category))
	if !models.IsValidCategory(category) {
		return "", fmt.Errorf("category %q is not in the closed set", parsed.Category)
	}

	return category, nil
}
