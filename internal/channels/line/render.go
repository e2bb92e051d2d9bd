package line

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/wolfman30/spa-line-booking/internal/flow"
)

const (
	// maxMessagesPerCall is the LINE limit for one reply or push.
	maxMessagesPerCall = 5
	// maxQuickReplyItems is the LINE limit for quick reply buttons.
	maxQuickReplyItems = 13
	maxAltText         = 400

	colorMuted = "#888888"
)

// Render converts flow messages into LINE message objects.
func Render(msgs []flow.Message) []messaging_api.MessageInterface {
	out := make([]messaging_api.MessageInterface, 0, len(msgs))
	for _, msg := range msgs {
		switch m := msg.(type) {
		case flow.Text:
			out = append(out, renderText(m))
		case flow.Card:
			bubble := renderBubble(m)
			out = append(out, &messaging_api.FlexMessage{
				AltText:  altText(m.AltText, m.Title),
				Contents: &bubble,
			})
		case flow.Carousel:
			bubbles := make([]messaging_api.FlexBubble, 0, len(m.Cards))
			for _, card := range m.Cards {
				bubbles = append(bubbles, renderBubble(card))
			}
			out = append(out, &messaging_api.FlexMessage{
				AltText:  altText(m.AltText, "carousel"),
				Contents: &messaging_api.FlexCarousel{Contents: bubbles},
			})
		}
	}
	return out
}

func renderText(m flow.Text) *messaging_api.TextMessage {
	msg := &messaging_api.TextMessage{Text: m.Body}
	if len(m.Choices) == 0 {
		return msg
	}
	choices := m.Choices
	if len(choices) > maxQuickReplyItems {
		choices = choices[:maxQuickReplyItems]
	}
	items := make([]messaging_api.QuickReplyItem, 0, len(choices))
	for _, c := range choices {
		items = append(items, messaging_api.QuickReplyItem{Type: "action", Action: choiceAction(c)})
	}
	msg.QuickReply = &messaging_api.QuickReply{Items: items}
	return msg
}

func choiceAction(c flow.Choice) messaging_api.ActionInterface {
	if c.DatePicker != nil {
		return &messaging_api.DatetimePickerAction{
			Label:   c.Label,
			Data:    c.Data,
			Mode:    messaging_api.DatetimePickerActionMODE_DATE,
			Initial: c.DatePicker.Initial,
			Min:     c.DatePicker.Min,
			Max:     c.DatePicker.Max,
		}
	}
	return &messaging_api.PostbackAction{Label: c.Label, Data: c.Data, DisplayText: c.DisplayText}
}

func renderBubble(c flow.Card) messaging_api.FlexBubble {
	bubble := messaging_api.FlexBubble{}
	if c.ImageURL != "" {
		bubble.Hero = &messaging_api.FlexImage{
			Url:         c.ImageURL,
			Size:        "full",
			AspectRatio: "20:13",
			AspectMode:  "cover",
		}
	}

	titleColor := c.Accent
	if titleColor == "" {
		titleColor = "#333333"
	}
	body := []messaging_api.FlexComponentInterface{
		&messaging_api.FlexText{Text: c.Title, Size: "lg", Weight: messaging_api.FlexTextWEIGHT_BOLD, Color: titleColor, Wrap: true},
	}
	if c.Subtitle != "" {
		body = append(body, &messaging_api.FlexText{Text: c.Subtitle, Size: "sm", Color: colorMuted, Wrap: true})
	}
	if c.Body != "" {
		body = append(body, &messaging_api.FlexText{Text: c.Body, Size: "sm", Wrap: true, Margin: "md"})
	}
	if len(c.Fields) > 0 {
		body = append(body, &messaging_api.FlexSeparator{Margin: "md"})
		for _, f := range c.Fields {
			body = append(body, &messaging_api.FlexBox{
				Layout: messaging_api.FlexBoxLAYOUT_BASELINE,
				Margin: "sm",
				Contents: []messaging_api.FlexComponentInterface{
					&messaging_api.FlexText{Text: f.Label, Size: "sm", Color: colorMuted, Flex: 2},
					&messaging_api.FlexText{Text: f.Value, Size: "sm", Color: f.Color, Flex: 5, Wrap: true},
				},
			})
		}
	}
	bubble.Body = &messaging_api.FlexBox{Layout: messaging_api.FlexBoxLAYOUT_VERTICAL, Contents: body}

	if len(c.Buttons) > 0 {
		buttons := make([]messaging_api.FlexComponentInterface, 0, len(c.Buttons))
		for _, b := range c.Buttons {
			style := messaging_api.FlexButtonSTYLE_SECONDARY
			if b.Primary {
				style = messaging_api.FlexButtonSTYLE_PRIMARY
			}
			buttons = append(buttons, &messaging_api.FlexButton{
				Style:  style,
				Height: "sm",
				Action: &messaging_api.PostbackAction{Label: b.Label, Data: b.Data, DisplayText: b.DisplayText},
			})
		}
		bubble.Footer = &messaging_api.FlexBox{
			Layout:   messaging_api.FlexBoxLAYOUT_VERTICAL,
			Spacing:  "sm",
			Contents: buttons,
		}
	}
	return bubble
}

func altText(alt, fallback string) string {
	if alt == "" {
		alt = fallback
	}
	if r := []rune(alt); len(r) > maxAltText {
		alt = string(r[:maxAltText])
	}
	return alt
}
