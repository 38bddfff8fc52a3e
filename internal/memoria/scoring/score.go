package scoring

import (
	"strings"

	"github.com/knifekeroppi/memoria/internal/memoria/model"
)

// Scorer applies a Policy to messages. It precompiles the policy's word
// lists into lowercase lookup sets; construct one Scorer and share it, the
// Score method is safe for concurrent use.
type Scorer struct {
	policy   Policy
	blocked  map[string]struct{}
	notable  map[string]struct{}
	priority map[string]struct{}
}

// NewScorer compiles a validated Policy into a Scorer.
func NewScorer(policy Policy) *Scorer {
	return &Scorer{
		policy:   policy,
		blocked:  lowerSet(policy.BlockedWords),
		notable:  lowerSet(policy.NotableNames),
		priority: lowerSet(policy.PrioritySenders),
	}
}

func lowerSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

// Score returns the non-negative selection weight of a message. Zero means
// the message must never be picked.
func (s *Scorer) Score(msg model.Message) float64 {
	weight := s.policy.BaseWeight

	words := strings.Fields(msg.Content)

	for _, word := range words {
		lower := strings.ToLower(word)

		// A blocked word zeroes the weight by assignment rather than an
		// early return; the remaining rules still run, multiplying into
		// zero. Keep it that way so a blocked word can never be
		// out-boosted by rules applied afterwards.
		if _, ok := s.blocked[lower]; ok {
			weight = 0
		}

		if strings.Contains(word, "@") {
			weight *= s.policy.MentionBoost
		} else if _, ok := s.notable[lower]; ok {
			weight *= s.policy.MentionBoost
		}
	}

	if msg.IsDirect() {
		weight *= s.policy.DirectBoost
	}

	// Short messages are rarely worth remembering, and the shorter they
	// are the less so. Messages with attachments are exempt: a bare image
	// post has little text but is often the best memory of the day.
	if len(words) <= s.policy.ShortMessageMax && len(msg.Attachments) == 0 {
		weight *= s.policy.ShortMessagePenalty * float64(len(words))
	}

	if len(msg.Attachments) > 0 {
		weight *= s.policy.AttachmentBoost
	}

	if s.policy.SensitiveChannelTerm != "" && strings.Contains(msg.Channel.Name, s.policy.SensitiveChannelTerm) {
		weight *= s.policy.SensitiveChannelFactor
	}

	if s.policy.AdultChannelTerm != "" && strings.Contains(msg.Channel.Name, s.policy.AdultChannelTerm) {
		weight *= s.policy.AdultChannelFactor
	}

	if _, ok := s.priority[strings.ToLower(msg.Sender.Username)]; ok {
		weight *= s.policy.PrioritySenderBoost
	}

	if weight < 0 {
		return 0
	}
	return weight
}
