// Package scoring computes selection weights for archived messages. The
// weighting rules live in a Policy so the keyword lists and boost factors
// can be tuned from a YAML file without rebuilding the bot.
package scoring

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy holds every constant the scoring algorithm uses. All factor fields
// are multiplicative; a factor above 1 boosts a message, below 1 penalizes
// it.
type Policy struct {
	// BaseWeight is the starting weight before any rule applies.
	BaseWeight float64 `yaml:"baseWeight"`

	// BlockedWords zero a message's weight outright when any whitespace
	// token matches one of them case-insensitively. Content warnings and
	// other heavy topics have no place in a daily memory post.
	BlockedWords []string `yaml:"blockedWords"`

	// NotableNames are names whose appearance counts as a mention even
	// without an @ marker.
	NotableNames []string `yaml:"notableNames"`
	// MentionBoost applies once per token that carries an @ or matches a
	// notable name.
	MentionBoost float64 `yaml:"mentionBoost"`

	// DirectBoost applies to direct messages.
	DirectBoost float64 `yaml:"directBoost"`

	// ShortMessageMax is the token count at or below which a message
	// without attachments is considered short. Short messages are scaled
	// by ShortMessagePenalty times their token count, so a zero-token
	// message scores zero.
	ShortMessageMax     int     `yaml:"shortMessageMax"`
	ShortMessagePenalty float64 `yaml:"shortMessagePenalty"`

	// AttachmentBoost applies when the message carries at least one
	// attachment.
	AttachmentBoost float64 `yaml:"attachmentBoost"`

	// SensitiveChannelTerm penalizes channels whose name contains it
	// (e.g. venting channels).
	SensitiveChannelTerm   string  `yaml:"sensitiveChannelTerm"`
	SensitiveChannelFactor float64 `yaml:"sensitiveChannelFactor"`

	// AdultChannelTerm gives channels whose name contains it a small
	// boost.
	AdultChannelTerm   string  `yaml:"adultChannelTerm"`
	AdultChannelFactor float64 `yaml:"adultChannelFactor"`

	// PrioritySenders are usernames whose messages get a flat boost.
	PrioritySenders     []string `yaml:"prioritySenders"`
	PrioritySenderBoost float64  `yaml:"prioritySenderBoost"`
}

// DefaultPolicy returns the policy the bot has always run with.
func DefaultPolicy() Policy {
	return Policy{
		BaseWeight:             50,
		BlockedWords:           []string{"cw", "tw", "death", "trump", "kill", "kms"},
		NotableNames:           []string{"david", "dayvid", "syc", "sycamore", "reed", "abi", "ethan"},
		MentionBoost:           1.1,
		DirectBoost:            1.1,
		ShortMessageMax:        5,
		ShortMessagePenalty:    0.1,
		AttachmentBoost:        1.2,
		SensitiveChannelTerm:   "venting",
		SensitiveChannelFactor: 0.3,
		AdultChannelTerm:       "nsfw",
		AdultChannelFactor:     1.1,
		PrioritySenders:        []string{"neonkitchens", "mineawesome", "insidioushumdrum", "anaru", "knifekeroppi"},
		PrioritySenderBoost:    1.5,
	}
}

// ParsePolicy decodes a YAML policy document and validates it. It is the
// canonical entry point for loading scoring policies.
func ParsePolicy(data []byte) (Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("scoring policy parse: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// LoadPolicy reads a policy from path, or returns DefaultPolicy when path
// is empty.
func LoadPolicy(path string) (Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("scoring policy: %w", err)
	}
	return ParsePolicy(data)
}

// Validate checks the policy for values that would make scoring
// meaningless. It returns the first problem found.
func (p Policy) Validate() error {
	if p.BaseWeight <= 0 {
		return fmt.Errorf("baseWeight must be positive, got %v", p.BaseWeight)
	}
	for name, factor := range map[string]float64{
		"mentionBoost":           p.MentionBoost,
		"directBoost":            p.DirectBoost,
		"attachmentBoost":        p.AttachmentBoost,
		"sensitiveChannelFactor": p.SensitiveChannelFactor,
		"adultChannelFactor":     p.AdultChannelFactor,
		"prioritySenderBoost":    p.PrioritySenderBoost,
	} {
		if factor <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, factor)
		}
	}
	if p.ShortMessageMax < 0 {
		return fmt.Errorf("shortMessageMax must not be negative, got %d", p.ShortMessageMax)
	}
	if p.ShortMessagePenalty < 0 {
		return fmt.Errorf("shortMessagePenalty must not be negative, got %v", p.ShortMessagePenalty)
	}
	return nil
}
