package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/jwebster45206/gamemaster-agent/pkg/chat"
)

const continuePrompt = "Continue."

// GeminiService implements LLMService with Gemini function calling
type GeminiService struct {
	client *genai.Client
	logger *slog.Logger
}

// NewGeminiService creates a Gemini client authenticated with apiKey
func NewGeminiService(ctx context.Context, apiKey string, logger *slog.Logger) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiService{client: client, logger: logger}, nil
}

func (s *GeminiService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

// Close releases the underlying client
func (s *GeminiService) Close() error {
	return s.client.Close()
}

// ChatStream runs one streamed turn. Gemini returns whole function calls
// rather than argument pieces, so each call arrives as a single delta with
// a generated id.
func (s *GeminiService) ChatStream(ctx context.Context, req StreamRequest) (<-chan StreamChunk, error) {
	model := s.client.GenerativeModel(req.Model)

	system, contents := toGeminiContents(req.Messages)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if len(req.Tools) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: toGeminiFunctions(req.Tools)}}
	}
	if len(contents) == 0 {
		return nil, errors.New("gemini request has no user content")
	}
	cs := model.StartChat()
	last := contents[len(contents)-1]
	if last.Role == "user" {
		cs.History = contents[:len(contents)-1]
	} else {
		// transcript ends on a model note; ask it to carry on
		cs.History = contents
		last = &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(continuePrompt)}}
	}

	s.logger.Debug("Sending gemini chat request", "model", req.Model, "history", len(cs.History), "tool_count", len(req.Tools))
	it := cs.SendMessageStream(ctx, last.Parts...)

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		index := 0
		for {
			resp, err := it.Next()
			if errors.Is(err, iterator.Done) {
				send(ctx, ch, StreamChunk{Done: true})
				return
			}
			if err != nil {
				send(ctx, ch, StreamChunk{Error: fmt.Errorf("gemini stream failed: %w", err)})
				return
			}

			var out StreamChunk
			for _, cand := range resp.Candidates {
				if cand.Content == nil {
					continue
				}
				for _, part := range cand.Content.Parts {
					switch p := part.(type) {
					case genai.Text:
						out.Content += string(p)
					case genai.FunctionCall:
						args, err := json.Marshal(p.Args)
						if err != nil {
							args = []byte("{}")
						}
						out.ToolCalls = append(out.ToolCalls, chat.ToolCallDelta{
							Index:     index,
							ID:        "call_" + uuid.NewString(),
							Name:      p.Name,
							Arguments: string(args),
						})
						index++
					}
				}
				break // first candidate only
			}
			if out.Content == "" && len(out.ToolCalls) == 0 {
				continue
			}
			if !send(ctx, ch, out) {
				return
			}
		}
	}()
	return ch, nil
}

// toGeminiContents splits out the system text and converts the rest of the
// transcript, merging consecutive turns of the same role as Gemini requires
// alternating roles.
func toGeminiContents(msgs []chat.Message) (string, []*genai.Content) {
	var system []string
	var contents []*genai.Content

	appendParts := func(role string, parts ...genai.Part) {
		if len(parts) == 0 {
			return
		}
		if n := len(contents); n > 0 && contents[n-1].Role == role {
			contents[n-1].Parts = append(contents[n-1].Parts, parts...)
			return
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}

	for _, m := range msgs {
		switch m.Role {
		case chat.RoleSystem:
			system = append(system, m.Content)
		case chat.RoleUser:
			appendParts("user", genai.Text(m.Content))
		case chat.RoleAssistant:
			var parts []genai.Part
			if m.Content != "" {
				parts = append(parts, genai.Text(m.Content))
			}
			for _, tc := range m.ToolCalls {
				parts = append(parts, genai.FunctionCall{Name: tc.Name, Args: tc.Arguments})
			}
			appendParts("model", parts...)
		case chat.RoleTool:
			appendParts("user", genai.FunctionResponse{
				Name:     m.Name,
				Response: map[string]any{"result": m.Content},
			})
		}
	}
	return strings.Join(system, "\n\n"), contents
}

func toGeminiFunctions(specs []chat.ToolSpec) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, s := range specs {
		fd := &genai.FunctionDeclaration{Name: s.Name, Description: s.Description}
		if len(s.Params) > 0 {
			fd.Parameters = geminiObject(s.Params)
		}
		out = append(out, fd)
	}
	return out
}

func geminiObject(params []chat.Param) *genai.Schema {
	schema := &genai.Schema{Type: genai.TypeObject, Properties: make(map[string]*genai.Schema, len(params))}
	for _, p := range params {
		schema.Properties[p.Name] = geminiSchema(p)
		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}
	return schema
}

func geminiSchema(p chat.Param) *genai.Schema {
	var schema *genai.Schema
	switch p.Type {
	case chat.TypeObject:
		schema = geminiObject(p.Properties)
		schema.Nullable = !p.Required
	case chat.TypeInteger:
		schema = &genai.Schema{Type: genai.TypeInteger}
	case chat.TypeNumber:
		schema = &genai.Schema{Type: genai.TypeNumber}
	case chat.TypeBoolean:
		schema = &genai.Schema{Type: genai.TypeBoolean}
	default:
		schema = &genai.Schema{Type: genai.TypeString, Enum: p.Enum}
		if len(p.Enum) > 0 {
			schema.Format = "enum"
		}
	}
	schema.Description = p.Description
	return schema
}
