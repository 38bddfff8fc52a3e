package scoring_test

import (
	"math"
	"testing"
	"time"

	"github.com/knifekeroppi/memoria/internal/memoria/model"
	"github.com/knifekeroppi/memoria/internal/memoria/scoring"
)

func defaultScorer() *scoring.Scorer {
	return scoring.NewScorer(scoring.DefaultPolicy())
}

func baseMessage(content string) model.Message {
	return model.Message{
		ID:        "m1",
		Content:   content,
		Timestamp: time.Date(2021, time.May, 6, 12, 0, 0, 0, time.UTC),
		Sender:    model.Person{ID: "p1", Username: "someone"},
		Channel:   model.Channel{ID: "c1", ServerID: "srv", Name: "general"},
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScore_ShortMessagePenalty(t *testing.T) {
	// "hi": 1 token, no attachments → 50 × 0.1 × 1 = 5.
	got := defaultScorer().Score(baseMessage("hi"))
	if !almostEqual(got, 5) {
		t.Errorf("score: got %v, want 5", got)
	}
}

func TestScore_LongMessageInAdultChannel(t *testing.T) {
	// 7 tokens (> threshold), no attachments, channel contains "nsfw":
	// 50 × 1.1 = 55.
	msg := baseMessage("hello everyone how is it going today")
	msg.Channel.Name = "nsfw-chat"
	got := defaultScorer().Score(msg)
	if !almostEqual(got, 55) {
		t.Errorf("score: got %v, want 55", got)
	}
}

func TestScore_BlockedWordZeroesEverything(t *testing.T) {
	// Heavy boosting all around the blocked word must not rescue it.
	msg := baseMessage("@everyone remember when david said tw about ethan")
	msg.Attachments = []model.Attachment{{URL: "u", Name: "n"}}
	msg.Channel.ServerID = "0"
	msg.Sender.Username = "anaru"

	if got := defaultScorer().Score(msg); got != 0 {
		t.Errorf("score: got %v, want 0", got)
	}
}

func TestScore_BlockedWordCaseInsensitive(t *testing.T) {
	if got := defaultScorer().Score(baseMessage("this is a TW honestly for everyone here")); got != 0 {
		t.Errorf("score: got %v, want 0", got)
	}
}

func TestScore_ZeroTokensScoresZero(t *testing.T) {
	if got := defaultScorer().Score(baseMessage("")); got != 0 {
		t.Errorf("score: got %v, want 0 for empty content", got)
	}
}

func TestScore_AttachmentBoostMonotonic(t *testing.T) {
	msg := baseMessage("a long enough message that clears the short threshold")
	without := defaultScorer().Score(msg)

	msg.Attachments = []model.Attachment{{URL: "u", Name: "n"}}
	with := defaultScorer().Score(msg)

	if with < without {
		t.Errorf("adding an attachment lowered the score: %v -> %v", without, with)
	}
	if !almostEqual(with, without*1.2) {
		t.Errorf("attachment boost: got %v, want %v", with, without*1.2)
	}
}

func TestScore_AttachmentExemptsShortMessage(t *testing.T) {
	// A one-token message with a picture skips the short-message penalty:
	// 50 × 1.2 = 60.
	msg := baseMessage("look")
	msg.Attachments = []model.Attachment{{URL: "u", Name: "n"}}
	got := defaultScorer().Score(msg)
	if !almostEqual(got, 60) {
		t.Errorf("score: got %v, want 60", got)
	}
}

func TestScore_MentionBoostPerToken(t *testing.T) {
	// Two mention-qualifying tokens in a 6-token message:
	// 50 × 1.1 × 1.1 = 60.5.
	msg := baseMessage("reed and @abi should both see this")
	got := defaultScorer().Score(msg)
	if !almostEqual(got, 50*1.1*1.1) {
		t.Errorf("score: got %v, want %v", got, 50*1.1*1.1)
	}
}

func TestScore_DirectMessageBoost(t *testing.T) {
	msg := baseMessage("a long enough message that clears the short threshold")
	inChannel := defaultScorer().Score(msg)

	msg.Channel.ServerID = "0"
	direct := defaultScorer().Score(msg)

	if !almostEqual(direct, inChannel*1.1) {
		t.Errorf("direct boost: got %v, want %v", direct, inChannel*1.1)
	}
}

func TestScore_SensitiveChannelPenalty(t *testing.T) {
	msg := baseMessage("a long enough message that clears the short threshold")
	msg.Channel.Name = "venting-zone"
	got := defaultScorer().Score(msg)
	if !almostEqual(got, 50*0.3) {
		t.Errorf("score: got %v, want %v", got, 50*0.3)
	}
}

func TestScore_PrioritySenderBoost(t *testing.T) {
	msg := baseMessage("a long enough message that clears the short threshold")
	msg.Sender.Username = "knifekeroppi"
	got := defaultScorer().Score(msg)
	if !almostEqual(got, 50*1.5) {
		t.Errorf("score: got %v, want %v", got, 50*1.5)
	}
}
