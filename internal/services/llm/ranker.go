package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/arbor"

	"github.com/cotalabs/cotiza/internal/interfaces"
	"github.com/cotalabs/cotiza/internal/models"
)

const rankSystemPrompt = `Voce e um analista de compras. Receba uma lista de produtos candidatos encontrados em sites de fornecedores e escolha o unico produto que melhor atende a busca, considerando o termo pesquisado, a quantidade desejada, o peso custo/beneficio e o nivel de rigor (0 = aceite aproximacoes, 5 = apenas correspondencia exata da especificacao).

Responda somente JSON no formato:
{"indice": <indice do escolhido ou -1>, "relatorio": {"escolha_principal": {"indice": n, "nome": "...", "justificativa": "..."}, "alternativas": [{"indice": n, "nome": "...", "pontos_fortes": [...], "pontos_fracos": [...], "pontuacao": 0.0}], "criterios": [...], "peso_web": 0.0, "erro": ""}}

Se nenhum candidato atender ao rigor exigido, retorne indice -1 e explique em "erro". O campo "peso_web" e a sua avaliacao de 0.0 a 1.0 de quanto vale a pena comprar de fornecedor internacional para este item.`

// rankCandidate is the compacted candidate representation submitted to the
// model. Descriptions are truncated to keep the prompt bounded.
type rankCandidate struct {
	Index       int      `json:"indice"`
	Name        string   `json:"nome"`
	Category    string   `json:"categoria,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Description string   `json:"descricao,omitempty"`
	Price       string   `json:"preco"`
	URL         string   `json:"url"`
	MarketScale string   `json:"escala_mercado,omitempty"`
}

type rankResponse struct {
	Index  int               `json:"indice"`
	Report models.RankReport `json:"relatorio"`
}

const maxCandidateDescription = 240

// Ranker implements interfaces.Ranker on top of the provider factory.
type Ranker struct {
	factory *ProviderFactory
	model   string
	logger  arbor.ILogger
}

// NewRanker creates the candidate refinement capability. model may be empty
// to use the default provider's default model.
func NewRanker(factory *ProviderFactory, model string, logger arbor.ILogger) *Ranker {
	return &Ranker{
		factory: factory,
		model:   model,
		logger:  logger,
	}
}

// Rank submits the candidate list and returns the model's decision. Any
// malformed response is returned as an error; callers treat errors as a
// rejection of all candidates (fail closed).
func (r *Ranker) Rank(ctx context.Context, req *interfaces.RankRequest) (*interfaces.RankDecision, error) {
	if len(req.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates to rank")
	}

	compact := make([]rankCandidate, len(req.Candidates))
	for i, c := range req.Candidates {
		desc := truncateOnRuneBoundary(c.Description, maxCandidateDescription)
		compact[i] = rankCandidate{
			Index:       i,
			Name:        c.Name,
			Category:    c.Category,
			Tags:        c.Tags,
			Description: desc,
			Price:       c.Price,
			URL:         c.URL,
			MarketScale: string(c.MarketScale),
		}
	}

	payload := map[string]interface{}{
		"termo":      req.Term,
		"quantidade": req.Quantity,
		"rigor":      req.Rigor,
		"peso_web":   req.WebWeight,
		"candidatos": compact,
	}
	if req.CostBenefit != nil {
		payload["custo_beneficio"] = req.CostBenefit
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal rank request: %w", err)
	}

	resp, err := r.factory.GenerateContent(ctx, &ContentRequest{
		Model:             r.model,
		SystemInstruction: rankSystemPrompt,
		Messages: []Message{
			{Role: "user", Content: string(payloadJSON)},
		},
		OutputSchema: rankResponseSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("rank call failed: %w", err)
	}

	var parsed rankResponse
	if err := json.Unmarshal([]byte(extractJSON(resp.Text)), &parsed); err != nil {
		return nil, fmt.Errorf("malformed rank response: %w", err)
	}

	if parsed.Index >= len(req.Candidates) {
		return nil, fmt.Errorf("rank response index %d out of range (have %d candidates)", parsed.Index, len(req.Candidates))
	}
	if parsed.Index < -1 {
		parsed.Index = -1
	}

	r.logger.Debug().
		Int("index", parsed.Index).
		Int("candidates", len(req.Candidates)).
		Str("provider", string(resp.Provider)).
		Msg("Rank decision received")

	return &interfaces.RankDecision{
		Index:  parsed.Index,
		Report: parsed.Report,
	}, nil
}

// rankResponseSchema constrains Gemini structured output to the expected
// decision shape.
func rankResponseSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []string{"indice", "relatorio"},
		"properties": map[string]interface{}{
			"indice": map[string]interface{}{"type": "integer"},
			"relatorio": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"escolha_principal": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"indice":        map[string]interface{}{"type": "integer"},
							"nome":          map[string]interface{}{"type": "string"},
							"justificativa": map[string]interface{}{"type": "string"},
						},
					},
					"alternativas": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"indice":        map[string]interface{}{"type": "integer"},
								"nome":          map[string]interface{}{"type": "string"},
								"pontos_fortes": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
								"pontos_fracos": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
								"pontuacao":     map[string]interface{}{"type": "number"},
							},
						},
					},
					"criterios": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					"peso_web":  map[string]interface{}{"type": "number"},
					"erro":      map[string]interface{}{"type": "string"},
				},
			},
		},
	}
}

// extractJSON strips markdown code fences that some models wrap around JSON
// output.
// truncateOnRuneBoundary caps s at max bytes without splitting a multibyte
// rune, so scraped accented text never reaches the model mangled.
func truncateOnRuneBoundary(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	return strings.TrimSpace(text)
}
