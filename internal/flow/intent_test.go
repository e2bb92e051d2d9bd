package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/spa-line-booking/internal/conversation"
)

func TestParsePostback(t *testing.T) {
	cases := []struct {
		name   string
		data   string
		params map[string]string
		want   Command
	}{
		{
			name: "simple action",
			data: "action=book_service",
			want: Command{Intent: IntentBook, Action: ActionBookService},
		},
		{
			name: "service selection",
			data: "action=select_service&serviceId=svc-1",
			want: Command{Intent: IntentSelectService, Action: ActionSelectService, ServiceID: "svc-1"},
		},
		{
			name: "date in data",
			data: "action=select_date&date=2025-01-10",
			want: Command{Intent: IntentSelectDate, Action: ActionSelectDate, Date: "2025-01-10"},
		},
		{
			name:   "date from picker params",
			data:   "action=select_date",
			params: map[string]string{"date": "2025-01-11"},
			want:   Command{Intent: IntentSelectDate, Action: ActionSelectDate, Date: "2025-01-11"},
		},
		{
			name: "time selection",
			data: "action=select_time&time=10:30",
			want: Command{Intent: IntentSelectTime, Action: ActionSelectTime, Time: "10:30"},
		},
		{
			name: "malformed date",
			data: "action=select_date&date=10/01/2025",
			want: Command{Intent: IntentUnknown, Action: ActionSelectDate},
		},
		{
			name: "missing service id",
			data: "action=select_service",
			want: Command{Intent: IntentUnknown, Action: ActionSelectService},
		},
		{
			name: "unknown action",
			data: "action=teleport",
			want: Command{Intent: IntentUnknown, Action: "teleport"},
		},
		{
			name: "no action",
			data: "foo=bar",
			want: Command{Intent: IntentUnknown},
		},
		{
			name: "bad encoding",
			data: "action=%zz",
			want: Command{Intent: IntentUnknown},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParsePostback(tc.data, tc.params))
		})
	}
}

func TestPostbackDataRoundTrip(t *testing.T) {
	data := PostbackData(ActionSelectService, "serviceId", "svc 1&2")
	cmd := ParsePostback(data, nil)
	assert.Equal(t, IntentSelectService, cmd.Intent)
	assert.Equal(t, "svc 1&2", cmd.ServiceID)
}

func TestClassifyText_IdleKeywords(t *testing.T) {
	cases := []struct {
		text string
		want Intent
	}{
		{"สมัคร", IntentRegister},
		{"สมัครสมาชิก", IntentRegister},
		{"Register please", IntentRegister},
		{"จอง", IntentBook},
		{"อยากจองนวด", IntentBook},
		// first matching rule wins over the my-bookings rule
		{"การจอง", IntentBook},
		{"บริการ", IntentViewServices},
		{"นัดหมาย", IntentMyBookings},
		{"โปรไฟล์", IntentProfile},
		{"ยกเลิก", IntentCancel},
		{"CANCEL", IntentCancel},
		{"เมนู", IntentMenu},
		{"menu", IntentMenu},
		{"เมนูอาหาร", IntentHelp},
		{"สวัสดี", IntentHelp},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyText(conversation.StateIdle, tc.text).Intent)
		})
	}
}

func TestClassifyText_InFlowTreatsTextAsInput(t *testing.T) {
	cmd := ClassifyText(conversation.StateRegistrationPhone, " สมัคร ")
	assert.Equal(t, IntentInput, cmd.Intent)
	assert.Equal(t, "สมัคร", cmd.Text)

	assert.Equal(t, IntentCancel, ClassifyText(conversation.StateBookingConfirm, "ยกเลิก").Intent)
	assert.Equal(t, IntentInput, ClassifyText(conversation.StateBookingSelectDate, "จอง").Intent)
}

func TestIntentString(t *testing.T) {
	assert.Equal(t, "confirm_booking", IntentConfirmBooking.String())
	assert.Equal(t, "unknown", Intent(999).String())
}
