package flow

import (
	"strconv"

	"github.com/wolfman30/spa-line-booking/internal/conversation"
)

// Draft is a typed view over the session data collected so far.
type Draft struct {
	Phone       string
	Email       string
	ServiceID   string
	ServiceName string
	Price       float64
	Date        string
	Time        string
}

// DraftFrom reads a Draft from session data. Missing keys stay zero.
func DraftFrom(data map[string]string) Draft {
	d := Draft{
		Phone:       data[conversation.KeyPhone],
		Email:       data[conversation.KeyEmail],
		ServiceID:   data[conversation.KeyServiceID],
		ServiceName: data[conversation.KeyServiceName],
		Date:        data[conversation.KeyDate],
		Time:        data[conversation.KeyTime],
	}
	if raw, ok := data[conversation.KeyPrice]; ok {
		d.Price, _ = strconv.ParseFloat(raw, 64)
	}
	return d
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
