package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/gamemaster-agent/pkg/chat"
)

//go:embed prompts.yaml
var defaultPack []byte

// ObservationWindow is how many trailing transcript entries the
// observation agent sees.
const ObservationWindow = 2

// Pack holds the system message of each agent
type Pack struct {
	GameMaster  string `yaml:"game_master"`
	Creation    string `yaml:"creation"`
	Observation string `yaml:"observation"`
	Opening     string `yaml:"opening"`
}

// Default returns the embedded pack
func Default() *Pack {
	var p Pack
	if err := yaml.Unmarshal(defaultPack, &p); err != nil {
		panic(fmt.Sprintf("embedded prompts.yaml is invalid: %v", err))
	}
	return &p
}

// Load reads a YAML pack from path. Fields left empty in the file keep
// their embedded defaults. An empty path returns the defaults.
func Load(path string) (*Pack, error) {
	p := Default()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}
	var override Pack
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}

	if override.GameMaster != "" {
		p.GameMaster = override.GameMaster
	}
	if override.Creation != "" {
		p.Creation = override.Creation
	}
	if override.Observation != "" {
		p.Observation = override.Observation
	}
	if override.Opening != "" {
		p.Opening = override.Opening
	}
	return p, nil
}

// Validate strictly decodes a pack file. Unknown keys are errors; fields
// left blank are returned by their YAML name since they fall back to the
// embedded defaults.
func Validate(data []byte) ([]string, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Pack
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("invalid prompts file: %w", err)
	}

	var blank []string
	for _, f := range []struct{ name, value string }{
		{"game_master", p.GameMaster},
		{"creation", p.Creation},
		{"observation", p.Observation},
		{"opening", p.Opening},
	} {
		if strings.TrimSpace(f.value) == "" {
			blank = append(blank, f.name)
		}
	}
	return blank, nil
}

// Transcript starts a fresh game-master transcript
func (p *Pack) Transcript() []chat.Message {
	return []chat.Message{chat.SystemMessage(p.GameMaster)}
}

// CreationMessages builds the single-shot creation request
func (p *Pack) CreationMessages(description string) []chat.Message {
	return []chat.Message{
		chat.SystemMessage(p.Creation),
		chat.UserMessage(description),
	}
}

// ObservationMessages builds the observation request from the tail of the
// main transcript. Entries are reduced to plain text: the observer never
// sees another agent's tool round.
func (p *Pack) ObservationMessages(transcript []chat.Message) []chat.Message {
	msgs := []chat.Message{chat.SystemMessage(p.Observation)}
	start := max(len(transcript)-ObservationWindow, 0)
	for _, m := range transcript[start:] {
		switch m.Role {
		case chat.RoleSystem:
			continue
		case chat.RoleTool:
			msgs = append(msgs, chat.AssistantMessage(fmt.Sprintf("Tool %s returned: %s", m.Name, m.Content)))
		default:
			msgs = append(msgs, chat.Message{Role: m.Role, Content: m.Content})
		}
	}
	return msgs
}

// CharacterDescription combines the world and character descriptions a
// player submits into the creation agent's input.
func CharacterDescription(world, character string) string {
	world = strings.TrimSpace(world)
	character = strings.TrimSpace(character)
	switch {
	case world == "":
		return character
	case character == "":
		return world
	}
	return fmt.Sprintf("World: %s\n\nCharacter: %s", world, character)
}

// OpeningMessage is the first human message after creation
func (p *Pack) OpeningMessage(summary string) string {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return p.Opening
	}
	return summary + " " + p.Opening
}

// StorySummary recaps a new story for the opening message
func StorySummary(world, character, lore string) string {
	var b strings.Builder
	for _, part := range []struct{ label, text string }{
		{"World Description", world},
		{"Character Description", character},
		{"Lore", lore},
	} {
		if t := strings.TrimSpace(part.text); t != "" {
			fmt.Fprintf(&b, "%s:\n%s\n\n", part.label, t)
		}
	}
	return strings.TrimSpace(b.String())
}
