package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/cotalabs/cotiza/internal/models"
)

const weighSystemPrompt = `Para cada item de cotacao abaixo, avalie de 0.0 a 1.0 quanto vale a pena buscar o item em fornecedores internacionais (peso alto para itens padronizados de facil importacao, peso baixo para itens urgentes, perigosos ou com forte oferta nacional).

Responda somente JSON: {"pesos": [{"id": "...", "peso": 0.0}]}`

// Weigher implements interfaces.Weigher on top of the provider factory.
// Callers fall back to a fixed default scheme when Weigh returns an error.
type Weigher struct {
	factory *ProviderFactory
	model   string
	logger  arbor.ILogger
}

// NewWeigher creates the web-search weighting capability.
func NewWeigher(factory *ProviderFactory, model string, logger arbor.ILogger) *Weigher {
	return &Weigher{
		factory: factory,
		model:   model,
		logger:  logger,
	}
}

type weighEntry struct {
	ID       string `json:"id"`
	Name     string `json:"nome"`
	Category string `json:"categoria,omitempty"`
	Quantity int    `json:"quantidade,omitempty"`
}

type weighResponse struct {
	Weights []struct {
		ID     string  `json:"id"`
		Weight float64 `json:"peso"`
	} `json:"pesos"`
}

// Weigh scores each missing item with a 0.0-1.0 web-search weight.
func (w *Weigher) Weigh(ctx context.Context, items []models.MissingItem) (map[string]float64, error) {
	if len(items) == 0 {
		return map[string]float64{}, nil
	}

	entries := make([]weighEntry, len(items))
	for i, item := range items {
		entries[i] = weighEntry{
			ID:       item.ID,
			Name:     item.Name,
			Category: item.Category,
			Quantity: item.Quantity,
		}
	}

	payloadJSON, err := json.Marshal(map[string]interface{}{"itens": entries})
	if err != nil {
		return nil, fmt.Errorf("marshal weigh request: %w", err)
	}

	resp, err := w.factory.GenerateContent(ctx, &ContentRequest{
		Model:             w.model,
		SystemInstruction: weighSystemPrompt,
		Messages: []Message{
			{Role: "user", Content: string(payloadJSON)},
		},
		OutputSchema: map[string]interface{}{
			"type":     "object",
			"required": []string{"pesos"},
			"properties": map[string]interface{}{
				"pesos": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type":     "object",
						"required": []string{"id", "peso"},
						"properties": map[string]interface{}{
							"id":   map[string]interface{}{"type": "string"},
							"peso": map[string]interface{}{"type": "number", "minimum": 0.0, "maximum": 1.0},
						},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("weigh call failed: %w", err)
	}

	var parsed weighResponse
	if err := json.Unmarshal([]byte(extractJSON(resp.Text)), &parsed); err != nil {
		return nil, fmt.Errorf("malformed weigh response: %w", err)
	}

	weights := make(map[string]float64, len(parsed.Weights))
	for _, entry := range parsed.Weights {
		weight := entry.Weight
		if weight < 0 {
			weight = 0
		}
		if weight > 1 {
			weight = 1
		}
		weights[entry.ID] = weight
	}

	return weights, nil
}
