// Package extraction turns an uploaded "Relatório de Carga Sintético"
// (PDF or image) into material->kg readings via Gemini.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/schema"
)

// ErrExtractionFailed carries the message shown to the operator when the
// document cannot be read. No stock mutation is attempted on failure.
var ErrExtractionFailed = errors.New("Erro ao processar o relatório. Certifique-se de que o arquivo é um Relatório de Carga Sintético válido.")

const reportPrompt = `
Analise este "Relatório de Carga Sintético" (documento PDF ou imagem).
Extraia os valores da coluna "Real (Kg)" para cada material listado.
Foque especificamente em:
- BRITA 0
- BRITA 1
- AREIA MEDI (ou AREIA MEDIA)
- AREIA BRIT (ou AREIA BRITA)
- AREIA FINA
- SILO 1
- SILO 2

Retorne apenas um objeto JSON com os nomes dos materiais e seus respectivos valores numéricos.
`

// ReportExtractor is what the HTTP layer depends on; tests substitute it.
type ReportExtractor interface {
	ProcessReport(ctx context.Context, document []byte, mimeType string) (map[string]float64, error)
}

type GeminiExtractor struct {
	llm llms.Model
}

// NewGeminiExtractor builds the production extractor. The API key comes
// from GEMINI_API_KEY (GEN_AI_API_KEY also accepted, matching the ops env).
func NewGeminiExtractor(ctx context.Context) (*GeminiExtractor, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GEN_AI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("Chave API do Gemini não configurada. Configure a variável GEMINI_API_KEY no ambiente.")
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-1.5-flash"
	}

	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, err
	}
	return &GeminiExtractor{llm: llm}, nil
}

func (g *GeminiExtractor) ProcessReport(ctx context.Context, document []byte, mimeType string) (map[string]float64, error) {
	resp, err := g.llm.GenerateContent(ctx, []llms.MessageContent{
		{
			Role: schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.BinaryPart(mimeType, document),
				llms.TextPart(reportPrompt),
			},
		},
	}, llms.WithJSONMode())
	if err != nil {
		return nil, fmt.Errorf("%w (%v)", ErrExtractionFailed, err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrExtractionFailed
	}
	return ParseReportJSON(resp.Choices[0].Content)
}

// ParseReportJSON decodes the model's answer into label->kg readings.
// Tolerates markdown code fences and drops non-numeric values; an answer
// with no usable object at all is an extraction failure.
func ParseReportJSON(text string) (map[string]float64, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil, ErrExtractionFailed
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, ErrExtractionFailed
	}

	readings := make(map[string]float64, len(raw))
	for label, value := range raw {
		var n float64
		if err := json.Unmarshal(value, &n); err != nil {
			continue
		}
		readings[strings.ToUpper(strings.TrimSpace(label))] = n
	}
	return readings, nil
}
