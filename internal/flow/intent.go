package flow

import (
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wolfman30/spa-line-booking/internal/conversation"
)

// Intent is the classified meaning of a text message or postback.
type Intent int

const (
	IntentUnknown Intent = iota
	IntentRegister
	IntentLogin
	IntentBook
	IntentViewServices
	IntentMyBookings
	IntentBuyCourse
	IntentProfile
	IntentContact
	IntentSelectService
	IntentSelectDate
	IntentSelectTime
	IntentConfirmBooking
	IntentConfirmRegistration
	IntentSkip
	IntentCancel
	IntentBack
	IntentMenu
	IntentHelp
	// IntentInput is free text typed while a flow step awaits an answer.
	IntentInput
)

var intentNames = map[Intent]string{
	IntentUnknown:             "unknown",
	IntentRegister:            "register",
	IntentLogin:               "login",
	IntentBook:                "book",
	IntentViewServices:        "view_services",
	IntentMyBookings:          "my_bookings",
	IntentBuyCourse:           "buy_course",
	IntentProfile:             "profile",
	IntentContact:             "contact",
	IntentSelectService:       "select_service",
	IntentSelectDate:          "select_date",
	IntentSelectTime:          "select_time",
	IntentConfirmBooking:      "confirm_booking",
	IntentConfirmRegistration: "confirm_registration",
	IntentSkip:                "skip",
	IntentCancel:              "cancel",
	IntentBack:                "back",
	IntentMenu:                "menu",
	IntentHelp:                "help",
	IntentInput:               "input",
}

func (i Intent) String() string {
	if name, ok := intentNames[i]; ok {
		return name
	}
	return "unknown"
}

// Postback actions.
const (
	ActionRegister            = "register"
	ActionLogin               = "login"
	ActionBookService         = "book_service"
	ActionViewServices        = "view_services"
	ActionMyBookings          = "my_bookings"
	ActionBuyCourse           = "buy_course"
	ActionMyProfile           = "my_profile"
	ActionContactUs           = "contact_us"
	ActionSelectService       = "select_service"
	ActionSelectDate          = "select_date"
	ActionSelectTime          = "select_time"
	ActionConfirmBooking      = "confirm_booking"
	ActionConfirmRegistration = "confirm_registration"
	ActionSkip                = "skip"
	ActionCancel              = "cancel"
	ActionBack                = "back"
	ActionMainMenu            = "main_menu"
)

var actionIntents = map[string]Intent{
	ActionRegister:            IntentRegister,
	ActionLogin:               IntentLogin,
	ActionBookService:         IntentBook,
	ActionViewServices:        IntentViewServices,
	ActionMyBookings:          IntentMyBookings,
	ActionBuyCourse:           IntentBuyCourse,
	ActionMyProfile:           IntentProfile,
	ActionContactUs:           IntentContact,
	ActionSelectService:       IntentSelectService,
	ActionSelectDate:          IntentSelectDate,
	ActionSelectTime:          IntentSelectTime,
	ActionConfirmBooking:      IntentConfirmBooking,
	ActionConfirmRegistration: IntentConfirmRegistration,
	ActionSkip:                IntentSkip,
	ActionCancel:              IntentCancel,
	ActionBack:                IntentBack,
	ActionMainMenu:            IntentMenu,
}

// Command is a parsed intent with its arguments.
type Command struct {
	Intent    Intent
	Action    string
	ServiceID string
	Date      string
	Time      string
	Text      string
}

type serviceArgs struct {
	ServiceID string `validate:"required,max=64,printascii"`
}

type dateArgs struct {
	Date string `validate:"required,datetime=2006-01-02"`
}

type timeArgs struct {
	Time string `validate:"required,datetime=15:04"`
}

var argValidator = validator.New()

// ParsePostback decodes `action=<name>&k=v` data. Date picker selections
// arrive in params rather than data. Unknown actions and invalid arguments
// yield IntentUnknown with Action set to the raw action.
func ParsePostback(data string, params map[string]string) Command {
	values, err := url.ParseQuery(data)
	if err != nil {
		return Command{Intent: IntentUnknown}
	}
	action := values.Get("action")
	intent, ok := actionIntents[action]
	if !ok {
		return Command{Intent: IntentUnknown, Action: action}
	}
	cmd := Command{Intent: intent, Action: action}
	invalid := Command{Intent: IntentUnknown, Action: action}

	switch intent {
	case IntentSelectService:
		args := serviceArgs{ServiceID: values.Get("serviceId")}
		if argValidator.Struct(args) != nil {
			return invalid
		}
		cmd.ServiceID = args.ServiceID
	case IntentSelectDate:
		args := dateArgs{Date: values.Get("date")}
		if args.Date == "" {
			args.Date = params["date"]
		}
		if argValidator.Struct(args) != nil {
			return invalid
		}
		cmd.Date = args.Date
	case IntentSelectTime:
		args := timeArgs{Time: values.Get("time")}
		if args.Time == "" {
			args.Time = params["time"]
		}
		if argValidator.Struct(args) != nil {
			return invalid
		}
		cmd.Time = args.Time
	}
	return cmd
}

// KeywordRule maps free text to an intent. Contains entries match as
// substrings of the lower-cased text; Exact entries must equal it.
type KeywordRule struct {
	Intent   Intent
	Contains []string
	Exact    []string
}

// Match reports whether the normalized text satisfies the rule.
func (r KeywordRule) Match(normalized string) bool {
	for _, kw := range r.Exact {
		if normalized == kw {
			return true
		}
	}
	for _, kw := range r.Contains {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}

var cancelRule = KeywordRule{Intent: IntentCancel, Contains: []string{"ยกเลิก"}, Exact: []string{"cancel"}}

// KeywordRules are evaluated in order and the first match wins, so "การจอง"
// resolves to booking (rule 2) before my-bookings (rule 4).
var KeywordRules = []KeywordRule{
	{Intent: IntentRegister, Contains: []string{"สมัคร", "register"}},
	{Intent: IntentBook, Contains: []string{"จอง", "book"}},
	{Intent: IntentViewServices, Contains: []string{"บริการ", "service"}},
	{Intent: IntentMyBookings, Contains: []string{"การจอง", "นัดหมาย", "my booking"}},
	{Intent: IntentProfile, Contains: []string{"โปรไฟล์", "profile", "ข้อมูลของฉัน"}},
	cancelRule,
	{Intent: IntentMenu, Exact: []string{"เมนู", "menu"}},
}

// ClassifyText maps a text message to a command. Outside Idle only the
// cancel rule applies; anything else is the answer to the current step.
func ClassifyText(state conversation.State, text string) Command {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if state != conversation.StateIdle {
		if cancelRule.Match(normalized) {
			return Command{Intent: IntentCancel, Text: text}
		}
		return Command{Intent: IntentInput, Text: strings.TrimSpace(text)}
	}
	for _, rule := range KeywordRules {
		if rule.Match(normalized) {
			return Command{Intent: rule.Intent, Text: text}
		}
	}
	return Command{Intent: IntentHelp, Text: text}
}
