package line

import (
	"strings"
	"testing"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/spa-line-booking/internal/flow"
)

func TestRender_TextWithDatePicker(t *testing.T) {
	out := Render([]flow.Message{flow.Text{
		Body: "pick a date",
		Choices: []flow.Choice{
			{Label: "เลือกวันที่", Data: "action=select_date", DatePicker: &flow.DatePicker{Initial: "2025-01-06", Min: "2025-01-06", Max: "2025-02-04"}},
			{Label: "ยกเลิก", Data: "action=cancel", DisplayText: "ยกเลิกการจอง"},
		},
	}})
	require.Len(t, out, 1)
	msg, ok := out[0].(*messaging_api.TextMessage)
	require.True(t, ok)
	require.NotNil(t, msg.QuickReply)
	require.Len(t, msg.QuickReply.Items, 2)

	picker, ok := msg.QuickReply.Items[0].Action.(*messaging_api.DatetimePickerAction)
	require.True(t, ok)
	assert.Equal(t, messaging_api.DatetimePickerActionMODE_DATE, picker.Mode)
	assert.Equal(t, "2025-02-04", picker.Max)

	postback, ok := msg.QuickReply.Items[1].Action.(*messaging_api.PostbackAction)
	require.True(t, ok)
	assert.Equal(t, "ยกเลิกการจอง", postback.DisplayText)
}

func TestRender_PlainTextHasNoQuickReply(t *testing.T) {
	out := Render([]flow.Message{flow.Text{Body: "hi"}})
	msg := out[0].(*messaging_api.TextMessage)
	assert.Nil(t, msg.QuickReply)
}

func TestRender_QuickRepliesCapped(t *testing.T) {
	choices := make([]flow.Choice, 20)
	for i := range choices {
		choices[i] = flow.Choice{Label: "x", Data: "action=menu"}
	}
	msg := Render([]flow.Message{flow.Text{Body: "many", Choices: choices}})[0].(*messaging_api.TextMessage)
	assert.Len(t, msg.QuickReply.Items, maxQuickReplyItems)
}

func TestRender_CardAndCarousel(t *testing.T) {
	card := flow.Card{
		AltText:  "booking",
		Title:    "การจองสำเร็จ",
		Subtitle: "BK202501050001",
		ImageURL: "https://example.com/spa.jpg",
		Fields:   []flow.Field{{Label: "บริการ", Value: "Thai Massage"}},
		Buttons:  []flow.Button{{Label: "ดู", Data: "action=my_bookings", Primary: true}},
	}
	out := Render([]flow.Message{card, flow.Carousel{AltText: "services", Cards: []flow.Card{card, card}}})
	require.Len(t, out, 2)

	single, ok := out[0].(*messaging_api.FlexMessage)
	require.True(t, ok)
	assert.Equal(t, "booking", single.AltText)
	bubble, ok := single.Contents.(*messaging_api.FlexBubble)
	require.True(t, ok)
	assert.NotNil(t, bubble.Hero)
	require.NotNil(t, bubble.Footer)
	button := bubble.Footer.Contents[0].(*messaging_api.FlexButton)
	assert.Equal(t, messaging_api.FlexButtonSTYLE_PRIMARY, button.Style)
	// title, subtitle, separator, one field row
	assert.Len(t, bubble.Body.Contents, 4)

	multi := out[1].(*messaging_api.FlexMessage)
	carousel, ok := multi.Contents.(*messaging_api.FlexCarousel)
	require.True(t, ok)
	assert.Len(t, carousel.Contents, 2)
}

func TestAltTextFallbackAndLimit(t *testing.T) {
	assert.Equal(t, "Title", altText("", "Title"))
	long := strings.Repeat("ก", maxAltText+10)
	assert.Len(t, []rune(altText(long, "")), maxAltText)
}
