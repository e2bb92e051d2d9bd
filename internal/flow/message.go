package flow

import (
	"context"
	"net/url"
)

// MessageKind names the shape of an outbound message.
type MessageKind string

const (
	KindText     MessageKind = "text"
	KindCard     MessageKind = "card"
	KindCarousel MessageKind = "carousel"
)

// Message is an outbound chat message. The set of implementations is closed:
// Text, Card and Carousel.
type Message interface {
	Kind() MessageKind
	isMessage()
}

// DatePicker turns a Choice into a calendar picker. Dates are YYYY-MM-DD.
type DatePicker struct {
	Initial string
	Min     string
	Max     string
}

// Choice is a quick-reply button sent back as a postback.
type Choice struct {
	Label       string
	Data        string
	DisplayText string
	DatePicker  *DatePicker
}

// Text is a plain message with optional quick replies.
type Text struct {
	Body    string
	Choices []Choice
}

// Field is a label/value row on a card.
type Field struct {
	Label string
	Value string
	Color string
}

// Button is a postback button on a card.
type Button struct {
	Label       string
	Data        string
	DisplayText string
	Primary     bool
}

// Card is a single structured bubble.
type Card struct {
	AltText  string
	Title    string
	Subtitle string
	Body     string
	Accent   string
	ImageURL string
	Fields   []Field
	Buttons  []Button
}

// Carousel is a horizontally scrollable list of cards.
type Carousel struct {
	AltText string
	Cards   []Card
}

func (Text) Kind() MessageKind     { return KindText }
func (Card) Kind() MessageKind     { return KindCard }
func (Carousel) Kind() MessageKind { return KindCarousel }

func (Text) isMessage()     {}
func (Card) isMessage()     {}
func (Carousel) isMessage() {}

// Profile is the public LINE profile of a user.
type Profile struct {
	DisplayName string
	PictureURL  string
}

// Gateway delivers messages to chat users.
type Gateway interface {
	// Reply answers the event that issued replyToken.
	Reply(ctx context.Context, replyToken string, messages ...Message) error
	// Push sends unsolicited messages to a user.
	Push(ctx context.Context, userID string, messages ...Message) error
	Profile(ctx context.Context, userID string) (*Profile, error)
}

// PostbackData encodes an action and key/value pairs as postback data.
func PostbackData(action string, kv ...string) string {
	values := url.Values{}
	values.Set("action", action)
	for i := 0; i+1 < len(kv); i += 2 {
		values.Set(kv[i], kv[i+1])
	}
	return values.Encode()
}
