package flow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/spa-line-booking/internal/bookings"
	"github.com/wolfman30/spa-line-booking/internal/catalog"
	"github.com/wolfman30/spa-line-booking/internal/conversation"
	"github.com/wolfman30/spa-line-booking/internal/observability/metrics"
	"github.com/wolfman30/spa-line-booking/internal/users"
	"github.com/wolfman30/spa-line-booking/pkg/logging"
)

var flowTracer = otel.Tracer("spa.internal.flow")

// EventKind classifies an inbound webhook event.
type EventKind string

const (
	EventMessage  EventKind = "message"
	EventPostback EventKind = "postback"
	EventFollow   EventKind = "follow"
	EventUnfollow EventKind = "unfollow"
	EventUnknown  EventKind = "unknown"
)

// Event is a platform-neutral inbound event.
type Event struct {
	ID             string
	Kind           EventKind
	UserID         string
	ReplyToken     string
	Text           string
	IsText         bool
	PostbackData   string
	PostbackParams map[string]string
	Redelivery     bool
	Timestamp      time.Time
}

// Outcome summarizes what handling an event did.
type Outcome string

const (
	OutcomeNone       Outcome = "none"
	OutcomeInfo       Outcome = "info"
	OutcomeAdvanced   Outcome = "advanced"
	OutcomeReprompt   Outcome = "reprompt"
	OutcomeRejected   Outcome = "rejected"
	OutcomeNotFound   Outcome = "not_found"
	OutcomeRegistered Outcome = "registered"
	OutcomeCompleted  Outcome = "completed"
	OutcomeCancelled  Outcome = "cancelled"
)

// Result reports the transition taken for one event.
type Result struct {
	From    conversation.State
	To      conversation.State
	Intent  Intent
	Outcome Outcome
	Booking *bookings.Booking
}

// BookingService creates and lists bookings.
type BookingService interface {
	Create(ctx context.Context, req *bookings.CreateRequest) (*bookings.Booking, error)
	Recent(ctx context.Context, userID string, limit int) ([]bookings.Booking, error)
}

// Settings tune the booking steps.
type Settings struct {
	TimeSlots        []string
	WindowDays       int
	Location         *time.Location
	ContactText      string
	BookingListLimit int
}

// DefaultSettings returns the slots and window the spa runs with out of the box.
func DefaultSettings() Settings {
	loc, err := time.LoadLocation("Asia/Bangkok")
	if err != nil {
		loc = time.FixedZone("ICT", 7*60*60)
	}
	return Settings{
		TimeSlots:        []string{"09:00", "10:30", "13:00", "14:30", "16:00"},
		WindowDays:       30,
		Location:         loc,
		ContactText:      DefaultContactText,
		BookingListLimit: 10,
	}
}

// Option customizes a Machine.
type Option func(*Machine)

func WithSettings(s Settings) Option {
	return func(m *Machine) {
		if len(s.TimeSlots) > 0 {
			m.settings.TimeSlots = s.TimeSlots
		}
		if s.WindowDays > 0 {
			m.settings.WindowDays = s.WindowDays
		}
		if s.Location != nil {
			m.settings.Location = s.Location
		}
		if strings.TrimSpace(s.ContactText) != "" {
			m.settings.ContactText = s.ContactText
		}
		if s.BookingListLimit > 0 {
			m.settings.BookingListLimit = s.BookingListLimit
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

func WithMetrics(fm *metrics.FlowMetrics) Option {
	return func(m *Machine) {
		m.metrics = fm
	}
}

// Machine is the conversational booking state machine. Callers serialize
// Handle per user; the Dispatcher does this with a conversation.Locker.
type Machine struct {
	store    conversation.Store
	users    users.Repository
	catalog  catalog.Repository
	bookings BookingService
	gateway  Gateway
	logger   *logging.Logger
	metrics  *metrics.FlowMetrics
	settings Settings
	now      func() time.Time
}

func NewMachine(
	store conversation.Store,
	userRepo users.Repository,
	catalogRepo catalog.Repository,
	bookingSvc BookingService,
	gateway Gateway,
	logger *logging.Logger,
	opts ...Option,
) *Machine {
	if store == nil || userRepo == nil || catalogRepo == nil || bookingSvc == nil || gateway == nil {
		panic("flow: store, repositories, booking service and gateway are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	m := &Machine{
		store:    store,
		users:    userRepo,
		catalog:  catalogRepo,
		bookings: bookingSvc,
		gateway:  gateway,
		logger:   logger,
		settings: DefaultSettings(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handle applies one event. Validation problems are answered in chat and
// never returned; a returned error means a collaborator failed.
func (m *Machine) Handle(ctx context.Context, ev Event) (Result, error) {
	ctx, span := flowTracer.Start(ctx, "flow.handle")
	defer span.End()
	span.SetAttributes(
		attribute.String("line.event_kind", string(ev.Kind)),
		attribute.String("line.user_id", ev.UserID),
	)

	var (
		res Result
		err error
	)
	switch ev.Kind {
	case EventFollow:
		res, err = m.follow(ctx, ev)
	case EventUnfollow:
		res, err = m.unfollow(ctx, ev)
	case EventMessage, EventPostback:
		res, err = m.interact(ctx, ev)
	default:
		m.logger.Debug("ignoring unsupported line event", "line_user_id", ev.UserID, "event_kind", ev.Kind)
		return Result{From: conversation.StateIdle, To: conversation.StateIdle, Outcome: OutcomeNone}, nil
	}
	if err != nil {
		span.RecordError(err)
	}
	if res.From != "" && res.To != "" {
		m.metrics.ObserveTransition(string(res.From), string(res.To))
	}
	return res, err
}

func (m *Machine) interact(ctx context.Context, ev Event) (Result, error) {
	state, err := m.store.GetState(ctx, ev.UserID)
	if err != nil {
		return Result{}, fmt.Errorf("flow: load state: %w", err)
	}
	m.touch(ctx, ev.UserID)

	var cmd Command
	if ev.Kind == EventMessage {
		if !ev.IsText {
			body := textTextOnly
			if state != conversation.StateIdle {
				body = textTypeYourAnswer
			}
			res := Result{From: state, To: state, Outcome: OutcomeReprompt}
			return res, m.send(ctx, ev, plain(body))
		}
		cmd = ClassifyText(state, ev.Text)
	} else {
		cmd = ParsePostback(ev.PostbackData, ev.PostbackParams)
	}

	res, err := m.apply(ctx, ev, state, cmd)
	res.From = state
	res.Intent = cmd.Intent
	if res.To == "" {
		res.To = state
	}
	m.logger.Debug("flow event handled",
		"line_user_id", ev.UserID,
		"intent", cmd.Intent.String(),
		"from", state,
		"to", res.To,
		"outcome", res.Outcome,
	)
	return res, err
}

func (m *Machine) apply(ctx context.Context, ev Event, state conversation.State, cmd Command) (Result, error) {
	switch cmd.Intent {
	case IntentRegister:
		return m.startRegistration(ctx, ev)
	case IntentLogin:
		return m.login(ctx, ev)
	case IntentBook:
		return m.startBooking(ctx, ev)
	case IntentViewServices:
		return m.info(ctx, ev, m.servicesMessage)
	case IntentMyBookings:
		return m.info(ctx, ev, m.bookingsMessage)
	case IntentBuyCourse:
		return m.reply(ctx, ev, Result{Outcome: OutcomeInfo}, course())
	case IntentProfile:
		return m.info(ctx, ev, m.profileMessage)
	case IntentContact:
		return m.reply(ctx, ev, Result{Outcome: OutcomeInfo}, plain(m.settings.ContactText))
	case IntentMenu:
		return m.reply(ctx, ev, Result{Outcome: OutcomeInfo}, mainMenuCard())
	case IntentHelp:
		return m.reply(ctx, ev, Result{Outcome: OutcomeInfo}, plain(textHelp))
	case IntentSelectService:
		return m.selectService(ctx, ev, state, cmd.ServiceID)
	case IntentSelectDate:
		return m.selectDate(ctx, ev, state, cmd.Date)
	case IntentSelectTime:
		return m.selectTime(ctx, ev, state, cmd.Time)
	case IntentConfirmBooking:
		if state != conversation.StateBookingConfirm {
			return m.reject(ctx, ev, cmd)
		}
		return m.commitBooking(ctx, ev)
	case IntentConfirmRegistration:
		if state != conversation.StateRegistrationEmail {
			return m.reject(ctx, ev, cmd)
		}
		return m.commitRegistration(ctx, ev)
	case IntentSkip:
		if state != conversation.StateRegistrationEmail {
			return m.reply(ctx, ev, Result{Outcome: OutcomeRejected}, plain(textCannotSkip))
		}
		return m.commitRegistration(ctx, ev)
	case IntentCancel, IntentBack:
		return m.cancel(ctx, ev)
	case IntentInput:
		return m.input(ctx, ev, state, cmd.Text)
	case IntentUnknown:
		return m.reject(ctx, ev, cmd)
	}
	return m.reject(ctx, ev, cmd)
}

// Registration

func (m *Machine) startRegistration(ctx context.Context, ev Event) (Result, error) {
	user, err := m.lookupUser(ctx, ev.UserID)
	if err != nil {
		return m.fail(ctx, ev, err)
	}
	if user.Registered() {
		return m.reply(ctx, ev, Result{To: conversation.StateIdle, Outcome: OutcomeInfo}, alreadyMember())
	}
	if err := m.restart(ctx, ev.UserID, conversation.StateRegistrationPhone, nil); err != nil {
		return m.fail(ctx, ev, err)
	}
	return m.reply(ctx, ev, Result{To: conversation.StateRegistrationPhone, Outcome: OutcomeAdvanced}, phonePrompt())
}

func (m *Machine) login(ctx context.Context, ev Event) (Result, error) {
	user, err := m.lookupUser(ctx, ev.UserID)
	if err != nil {
		return m.fail(ctx, ev, err)
	}
	if !user.Registered() {
		return m.reply(ctx, ev, Result{Outcome: OutcomeInfo}, notMember())
	}
	return m.reply(ctx, ev, Result{Outcome: OutcomeInfo}, welcomeBack(user.DisplayName))
}

func (m *Machine) input(ctx context.Context, ev Event, state conversation.State, body string) (Result, error) {
	switch state {
	case conversation.StateRegistrationPhone:
		if !ValidPhone(body) {
			return m.reply(ctx, ev, Result{Outcome: OutcomeReprompt}, invalidPhone())
		}
		phone := NormalizePhone(body)
		if err := m.store.SetState(ctx, ev.UserID, conversation.StateRegistrationEmail, map[string]string{conversation.KeyPhone: phone}); err != nil {
			return m.fail(ctx, ev, err)
		}
		return m.reply(ctx, ev, Result{To: conversation.StateRegistrationEmail, Outcome: OutcomeAdvanced}, emailPrompt(phone))
	case conversation.StateRegistrationEmail:
		if !ValidEmail(body) {
			return m.reply(ctx, ev, Result{Outcome: OutcomeReprompt}, invalidEmail())
		}
		if err := m.store.UpdateData(ctx, ev.UserID, map[string]string{conversation.KeyEmail: strings.TrimSpace(body)}); err != nil {
			return m.fail(ctx, ev, err)
		}
		return m.commitRegistration(ctx, ev)
	case conversation.StateBookingSelectService:
		return m.reply(ctx, ev, Result{Outcome: OutcomeReprompt}, pickService())
	case conversation.StateBookingSelectDate:
		return m.reply(ctx, ev, Result{Outcome: OutcomeReprompt}, pickDate(m.picker()))
	case conversation.StateBookingSelectTime:
		draft, err := m.draft(ctx, ev.UserID)
		if err != nil {
			return m.fail(ctx, ev, err)
		}
		return m.reply(ctx, ev, Result{Outcome: OutcomeReprompt}, dateChosen(draft.Date, m.settings.TimeSlots))
	case conversation.StateBookingConfirm:
		draft, err := m.draft(ctx, ev.UserID)
		if err != nil {
			return m.fail(ctx, ev, err)
		}
		return m.reply(ctx, ev, Result{Outcome: OutcomeReprompt}, summary(draft))
	case conversation.StateIdle:
	}
	return m.reply(ctx, ev, Result{Outcome: OutcomeInfo}, plain(textHelp))
}

func (m *Machine) commitRegistration(ctx context.Context, ev Event) (Result, error) {
	draft, err := m.draft(ctx, ev.UserID)
	if err != nil {
		return m.fail(ctx, ev, err)
	}
	if draft.Phone == "" {
		if err := m.store.SetState(ctx, ev.UserID, conversation.StateRegistrationPhone, nil); err != nil {
			return m.fail(ctx, ev, err)
		}
		return m.reply(ctx, ev, Result{To: conversation.StateRegistrationPhone, Outcome: OutcomeReprompt}, phonePrompt())
	}
	var email *string
	if draft.Email != "" {
		email = &draft.Email
	}
	if _, err := m.users.Register(ctx, ev.UserID, draft.Phone, email); err != nil {
		return m.fail(ctx, ev, fmt.Errorf("flow: register user: %w", err))
	}
	if err := m.store.ClearState(ctx, ev.UserID); err != nil {
		return m.fail(ctx, ev, err)
	}
	m.logger.Info("line user registered", "line_user_id", ev.UserID, "with_email", email != nil)
	return m.reply(ctx, ev, Result{To: conversation.StateIdle, Outcome: OutcomeRegistered}, registered())
}

// Booking

func (m *Machine) startBooking(ctx context.Context, ev Event) (Result, error) {
	user, err := m.lookupUser(ctx, ev.UserID)
	if err != nil {
		return m.fail(ctx, ev, err)
	}
	if !user.Registered() {
		return m.reply(ctx, ev, Result{To: conversation.StateIdle, Outcome: OutcomeRejected}, registerFirst())
	}
	services, err := m.catalog.ListActive(ctx)
	if err != nil {
		return m.fail(ctx, ev, fmt.Errorf("flow: list services: %w", err))
	}
	if len(services) == 0 {
		return m.reply(ctx, ev, Result{Outcome: OutcomeInfo}, plain(textNoServices))
	}
	if err := m.restart(ctx, ev.UserID, conversation.StateBookingSelectService, nil); err != nil {
		return m.fail(ctx, ev, err)
	}
	return m.reply(ctx, ev, Result{To: conversation.StateBookingSelectService, Outcome: OutcomeAdvanced}, servicesCarousel(services))
}

func (m *Machine) selectService(ctx context.Context, ev Event, state conversation.State, serviceID string) (Result, error) {
	switch state {
	case conversation.StateIdle:
		user, err := m.lookupUser(ctx, ev.UserID)
		if err != nil {
			return m.fail(ctx, ev, err)
		}
		if !user.Registered() {
			return m.reply(ctx, ev, Result{Outcome: OutcomeRejected}, registerFirst())
		}
	case conversation.StateBookingSelectService, conversation.StateBookingSelectDate,
		conversation.StateBookingSelectTime, conversation.StateBookingConfirm:
	default:
		return m.reject(ctx, ev, Command{Intent: IntentSelectService, Action: ActionSelectService})
	}

	svc, err := m.catalog.GetByID(ctx, serviceID)
	if errors.Is(err, catalog.ErrServiceNotFound) {
		return m.reply(ctx, ev, Result{Outcome: OutcomeNotFound}, plain(textServiceNotFound))
	}
	if err != nil {
		return m.fail(ctx, ev, fmt.Errorf("flow: get service: %w", err))
	}

	patch := map[string]string{
		conversation.KeyServiceID:   svc.ID,
		conversation.KeyServiceName: svc.Name,
		conversation.KeyPrice:       formatPrice(svc.Price),
	}
	if err := m.store.SetState(ctx, ev.UserID, conversation.StateBookingSelectDate, patch); err != nil {
		return m.fail(ctx, ev, err)
	}
	return m.reply(ctx, ev, Result{To: conversation.StateBookingSelectDate, Outcome: OutcomeAdvanced}, serviceChosen(svc, m.picker()))
}

func (m *Machine) selectDate(ctx context.Context, ev Event, state conversation.State, date string) (Result, error) {
	switch state {
	case conversation.StateBookingSelectDate, conversation.StateBookingSelectTime, conversation.StateBookingConfirm:
	default:
		return m.reject(ctx, ev, Command{Intent: IntentSelectDate, Action: ActionSelectDate})
	}
	picker := m.picker()
	// YYYY-MM-DD compares correctly as a string
	if date < picker.Min || date > picker.Max {
		return m.reply(ctx, ev, Result{Outcome: OutcomeReprompt}, dateOutOfRange(picker))
	}
	if err := m.store.SetState(ctx, ev.UserID, conversation.StateBookingSelectTime, map[string]string{conversation.KeyDate: date}); err != nil {
		return m.fail(ctx, ev, err)
	}
	return m.reply(ctx, ev, Result{To: conversation.StateBookingSelectTime, Outcome: OutcomeAdvanced}, dateChosen(date, m.settings.TimeSlots))
}

func (m *Machine) selectTime(ctx context.Context, ev Event, state conversation.State, slot string) (Result, error) {
	switch state {
	case conversation.StateBookingSelectTime, conversation.StateBookingConfirm:
	default:
		return m.reject(ctx, ev, Command{Intent: IntentSelectTime, Action: ActionSelectTime})
	}
	if !slices.Contains(m.settings.TimeSlots, slot) {
		return m.reply(ctx, ev, Result{Outcome: OutcomeReprompt}, invalidTime(m.settings.TimeSlots))
	}
	if err := m.store.SetState(ctx, ev.UserID, conversation.StateBookingConfirm, map[string]string{conversation.KeyTime: slot}); err != nil {
		return m.fail(ctx, ev, err)
	}
	draft, err := m.draft(ctx, ev.UserID)
	if err != nil {
		return m.fail(ctx, ev, err)
	}
	return m.reply(ctx, ev, Result{To: conversation.StateBookingConfirm, Outcome: OutcomeAdvanced}, summary(draft))
}

// commitBooking creates the booking and clears the session. A missing user or
// service leaves the session as it is so the user can still cancel.
func (m *Machine) commitBooking(ctx context.Context, ev Event) (Result, error) {
	draft, err := m.draft(ctx, ev.UserID)
	if err != nil {
		return m.fail(ctx, ev, err)
	}
	user, err := m.users.GetByLineID(ctx, ev.UserID)
	if errors.Is(err, users.ErrUserNotFound) {
		m.logger.Warn("booking confirm without user", "line_user_id", ev.UserID)
		return m.reply(ctx, ev, Result{Outcome: OutcomeNotFound}, plain(textGenericError))
	}
	if err != nil {
		return m.fail(ctx, ev, fmt.Errorf("flow: get user: %w", err))
	}
	svc, err := m.catalog.GetByID(ctx, draft.ServiceID)
	if errors.Is(err, catalog.ErrServiceNotFound) {
		m.logger.Warn("booking confirm for withdrawn service", "line_user_id", ev.UserID, "service_id", draft.ServiceID)
		return m.reply(ctx, ev, Result{Outcome: OutcomeNotFound}, plain(textSelectedSvcMissing))
	}
	if err != nil {
		return m.fail(ctx, ev, fmt.Errorf("flow: get service: %w", err))
	}

	amount := draft.Price
	if amount <= 0 {
		amount = svc.Price
	}
	booking, err := m.bookings.Create(ctx, &bookings.CreateRequest{
		UserID:          user.ID,
		ServiceID:       svc.ID,
		ServiceName:     svc.Name,
		AppointmentDate: draft.Date,
		AppointmentTime: draft.Time,
		DurationMinutes: svc.DurationMinutes,
		TotalAmount:     amount,
	})
	if err != nil {
		return m.fail(ctx, ev, fmt.Errorf("flow: create booking: %w", err))
	}
	if err := m.store.ClearState(ctx, ev.UserID); err != nil {
		return Result{}, fmt.Errorf("flow: clear after booking %s: %w", booking.BookingNumber, err)
	}
	res := Result{To: conversation.StateIdle, Outcome: OutcomeCompleted, Booking: booking}
	return m.reply(ctx, ev, res, bookingConfirmation(booking))
}

func (m *Machine) cancel(ctx context.Context, ev Event) (Result, error) {
	if err := m.store.ClearState(ctx, ev.UserID); err != nil {
		return m.fail(ctx, ev, err)
	}
	return m.reply(ctx, ev, Result{To: conversation.StateIdle, Outcome: OutcomeCancelled}, plain(textCancelled))
}

// Informational replies

func (m *Machine) info(ctx context.Context, ev Event, build func(context.Context, string) (Message, error)) (Result, error) {
	msg, err := build(ctx, ev.UserID)
	if err != nil {
		return m.fail(ctx, ev, err)
	}
	return m.reply(ctx, ev, Result{Outcome: OutcomeInfo}, msg)
}

func (m *Machine) servicesMessage(ctx context.Context, _ string) (Message, error) {
	services, err := m.catalog.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("flow: list services: %w", err)
	}
	if len(services) == 0 {
		return plain(textNoServices), nil
	}
	return servicesCarousel(services), nil
}

func (m *Machine) bookingsMessage(ctx context.Context, lineUserID string) (Message, error) {
	user, err := m.users.GetByLineID(ctx, lineUserID)
	if errors.Is(err, users.ErrUserNotFound) {
		return bookingsList(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("flow: get user: %w", err)
	}
	list, err := m.bookings.Recent(ctx, user.ID, m.settings.BookingListLimit)
	if err != nil {
		return nil, fmt.Errorf("flow: list bookings: %w", err)
	}
	return bookingsList(list), nil
}

func (m *Machine) profileMessage(ctx context.Context, lineUserID string) (Message, error) {
	user, err := m.users.GetByLineID(ctx, lineUserID)
	if errors.Is(err, users.ErrUserNotFound) {
		return userNotFound(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("flow: get user: %w", err)
	}
	return profileCard(user), nil
}

// Lifecycle

func (m *Machine) follow(ctx context.Context, ev Event) (Result, error) {
	res := Result{From: conversation.StateIdle, To: conversation.StateIdle, Outcome: OutcomeInfo}
	name := users.DefaultDisplayName
	var picture string
	profile, err := m.gateway.Profile(ctx, ev.UserID)
	if err != nil {
		m.logger.Warn("line profile lookup failed", "line_user_id", ev.UserID, "error", err)
	} else if profile != nil {
		name = profile.DisplayName
		picture = profile.PictureURL
	}
	if _, err := m.users.Upsert(ctx, &users.UpsertRequest{LineUserID: ev.UserID, DisplayName: name, PictureURL: picture}); err != nil {
		return res, fmt.Errorf("flow: upsert followed user: %w", err)
	}
	if strings.TrimSpace(name) == "" {
		name = users.DefaultDisplayName
	}
	return m.reply(ctx, ev, res, welcomeCard(name))
}

func (m *Machine) unfollow(ctx context.Context, ev Event) (Result, error) {
	state, _ := m.store.GetState(ctx, ev.UserID)
	res := Result{From: state, To: conversation.StateIdle, Outcome: OutcomeCancelled}
	if err := m.users.SetActive(ctx, ev.UserID, false); err != nil && !errors.Is(err, users.ErrUserNotFound) {
		return res, fmt.Errorf("flow: deactivate user: %w", err)
	}
	if err := m.store.ClearState(ctx, ev.UserID); err != nil {
		return res, fmt.Errorf("flow: clear on unfollow: %w", err)
	}
	return res, nil
}

// Helpers

// restart drops any draft and enters state.
func (m *Machine) restart(ctx context.Context, userID string, state conversation.State, patch map[string]string) error {
	if err := m.store.ClearState(ctx, userID); err != nil {
		return err
	}
	return m.store.SetState(ctx, userID, state, patch)
}

func (m *Machine) draft(ctx context.Context, userID string) (Draft, error) {
	data, err := m.store.GetData(ctx, userID)
	if err != nil {
		return Draft{}, fmt.Errorf("flow: load draft: %w", err)
	}
	return DraftFrom(data), nil
}

// lookupUser returns nil without error when the user has never been seen.
func (m *Machine) lookupUser(ctx context.Context, lineUserID string) (*users.User, error) {
	user, err := m.users.GetByLineID(ctx, lineUserID)
	if errors.Is(err, users.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("flow: get user: %w", err)
	}
	return user, nil
}

func (m *Machine) touch(ctx context.Context, lineUserID string) {
	if err := m.users.Touch(ctx, lineUserID); err != nil && !errors.Is(err, users.ErrUserNotFound) {
		m.logger.Debug("touch user failed", "line_user_id", lineUserID, "error", err)
	}
}

// picker bounds bookable dates: tomorrow through WindowDays from today.
func (m *Machine) picker() DatePicker {
	today := m.now().In(m.settings.Location)
	tomorrow := today.AddDate(0, 0, 1).Format(bookings.DateLayout)
	return DatePicker{
		Initial: tomorrow,
		Min:     tomorrow,
		Max:     today.AddDate(0, 0, m.settings.WindowDays).Format(bookings.DateLayout),
	}
}

func (m *Machine) reject(ctx context.Context, ev Event, cmd Command) (Result, error) {
	m.logger.Info("unrecognized line command", "line_user_id", ev.UserID, "intent", cmd.Intent.String(), "action", cmd.Action)
	return m.reply(ctx, ev, Result{Outcome: OutcomeRejected}, plain(textUnknownCommand))
}

// fail tells the user something went wrong and returns err for the dispatcher to log.
func (m *Machine) fail(ctx context.Context, ev Event, err error) (Result, error) {
	if sendErr := m.send(ctx, ev, plain(textGenericError)); sendErr != nil {
		err = errors.Join(err, sendErr)
	}
	return Result{Outcome: OutcomeNone}, err
}

func (m *Machine) reply(ctx context.Context, ev Event, res Result, msgs ...Message) (Result, error) {
	return res, m.send(ctx, ev, msgs...)
}

// send replies with the event's token, or pushes when there is none.
func (m *Machine) send(ctx context.Context, ev Event, msgs ...Message) error {
	var err error
	if ev.ReplyToken != "" {
		err = m.gateway.Reply(ctx, ev.ReplyToken, msgs...)
	} else {
		err = m.gateway.Push(ctx, ev.UserID, msgs...)
	}
	if err != nil {
		return fmt.Errorf("flow: send reply: %w", err)
	}
	return nil
}
