// Package model defines the archive's domain types: people, channels,
// messages and their attachments, plus the reference-timezone date helpers
// used to decide what "today" means.
package model

import (
	"fmt"
	"time"
)

// referenceZone is the fixed timezone in which all day boundaries are
// computed. The archive's community lives on US Eastern time, so a "day"
// is an Eastern day regardless of where the process runs.
const referenceZone = "America/New_York"

var referenceLocation *time.Location

func init() {
	loc, err := time.LoadLocation(referenceZone)
	if err != nil {
		// The tzdata for America/New_York ships with every supported
		// platform; failing to load it means the environment is broken
		// beyond anything the bot could do about it.
		panic(fmt.Sprintf("model: load reference timezone: %v", err))
	}
	referenceLocation = loc
}

// Location returns the reference timezone for day-boundary computations.
func Location() *time.Location {
	return referenceLocation
}

// Date is a calendar date in the reference timezone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in the reference timezone.
func DateOf(t time.Time) Date {
	y, m, d := t.In(referenceLocation).Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current calendar date in the reference timezone.
func Today() Date {
	return DateOf(time.Now())
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether d is the zero date, i.e. no snapshot has ever
// been computed.
func (d Date) IsZero() bool {
	return d == Date{}
}

// DayBounds returns the first and last instant of the given calendar day in
// the reference timezone. The end bound is inclusive, matching the store's
// date-range query contract.
func DayBounds(year int, month time.Month, day int) (start, end time.Time) {
	start = time.Date(year, month, day, 0, 0, 0, 0, referenceLocation)
	end = time.Date(year, month, day, 23, 59, 59, 999999000, referenceLocation)
	return start, end
}

// Person is someone who has sent at least one archived message. Identity is
// the platform-assigned ID; all other fields are display metadata that may
// drift over time.
type Person struct {
	ID       string // stable platform ID, immutable
	Username string // immutable handle
	Nickname string
	Color    string
	Avatar   string
}

// Channel is a place messages were sent. ServerID "0" is the sentinel for
// direct messages, which have no server.
type Channel struct {
	ID         string // identity, immutable
	ServerID   string
	ServerName string
	Name       string
	Icon       string
}

// DirectServerID marks a channel as a direct-message conversation.
const DirectServerID = "0"

// Attachment is an immutable file reference carried by a message.
type Attachment struct {
	URL  string
	Name string
}

// Message is a single archived chat message. It is immutable once created;
// identity and equality are by ID alone. Sender and Channel are denormalized
// snapshots of the authoritative stored entities.
type Message struct {
	ID          string
	Sender      Person
	Channel     Channel
	Content     string
	Timestamp   time.Time
	Attachments []Attachment
}

// IsDirect reports whether the message was sent in a direct-message
// conversation rather than a server channel.
func (m Message) IsDirect() bool {
	return m.Channel.ServerID == DirectServerID
}

// Permalink returns the canonical URL of the message on the originating
// platform. Direct messages use the "@me" path segment in place of a
// server ID.
func (m Message) Permalink() string {
	if m.IsDirect() {
		return "https://discord.com/channels/@me/" + m.Channel.ID + "/" + m.ID
	}
	return "https://discord.com/channels/" + m.Channel.ServerID + "/" + m.Channel.ID + "/" + m.ID
}
