package line

import (
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/wolfman30/spa-line-booking/internal/flow"
)

// ConvertEvents maps a parsed webhook body onto flow events, keeping delivery order.
func ConvertEvents(cb *webhook.CallbackRequest) []flow.Event {
	if cb == nil {
		return nil
	}
	out := make([]flow.Event, 0, len(cb.Events))
	for _, raw := range cb.Events {
		out = append(out, convertEvent(raw))
	}
	return out
}

func convertEvent(raw webhook.EventInterface) flow.Event {
	switch e := raw.(type) {
	case webhook.MessageEvent:
		ev := base(flow.EventMessage, e.WebhookEventId, e.Source, e.ReplyToken, e.Timestamp, e.DeliveryContext)
		if text, ok := e.Message.(webhook.TextMessageContent); ok {
			ev.Text = text.Text
			ev.IsText = true
		}
		return ev
	case webhook.PostbackEvent:
		ev := base(flow.EventPostback, e.WebhookEventId, e.Source, e.ReplyToken, e.Timestamp, e.DeliveryContext)
		if e.Postback != nil {
			ev.PostbackData = e.Postback.Data
			ev.PostbackParams = e.Postback.Params
		}
		return ev
	case webhook.FollowEvent:
		return base(flow.EventFollow, e.WebhookEventId, e.Source, e.ReplyToken, e.Timestamp, e.DeliveryContext)
	case webhook.UnfollowEvent:
		return base(flow.EventUnfollow, e.WebhookEventId, e.Source, "", e.Timestamp, e.DeliveryContext)
	default:
		return flow.Event{Kind: flow.EventUnknown}
	}
}

func base(kind flow.EventKind, id string, src webhook.SourceInterface, replyToken string, ts int64, dc *webhook.DeliveryContext) flow.Event {
	ev := flow.Event{
		ID:         id,
		Kind:       kind,
		UserID:     userID(src),
		ReplyToken: replyToken,
		Timestamp:  time.UnixMilli(ts),
	}
	if dc != nil {
		ev.Redelivery = dc.IsRedelivery
	}
	return ev
}

// userID resolves the acting user. Group and room events carry the user id
// only when the user has consented.
func userID(src webhook.SourceInterface) string {
	switch s := src.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	}
	return ""
}
