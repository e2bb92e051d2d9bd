package flow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/spa-line-booking/internal/bookings"
	"github.com/wolfman30/spa-line-booking/internal/catalog"
	"github.com/wolfman30/spa-line-booking/internal/conversation"
	"github.com/wolfman30/spa-line-booking/internal/users"
	"github.com/wolfman30/spa-line-booking/pkg/logging"
)

type sentMessage struct {
	token  string
	to     string
	output []Message
}

type fakeGateway struct {
	mu      sync.Mutex
	sent    []sentMessage
	profile *Profile
	err     error
	profErr error
}

func (g *fakeGateway) Reply(_ context.Context, token string, msgs ...Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, sentMessage{token: token, output: msgs})
	return g.err
}

func (g *fakeGateway) Push(_ context.Context, userID string, msgs ...Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, sentMessage{to: userID, output: msgs})
	return g.err
}

func (g *fakeGateway) Profile(_ context.Context, _ string) (*Profile, error) {
	return g.profile, g.profErr
}

func (g *fakeGateway) last(t *testing.T) Message {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	require.NotEmpty(t, g.sent)
	msgs := g.sent[len(g.sent)-1].output
	require.NotEmpty(t, msgs)
	return msgs[0]
}

func (g *fakeGateway) lastText(t *testing.T) string {
	t.Helper()
	msg, ok := g.last(t).(Text)
	require.True(t, ok, "expected text reply, got %T", g.last(t))
	return msg.Body
}

type harness struct {
	machine  *Machine
	store    *conversation.MemoryStore
	users    *users.InMemoryRepository
	catalog  *catalog.InMemoryRepository
	bookings *bookings.InMemoryRepository
	gateway  *fakeGateway
}

const testUser = "U4af4980629"

var testNow = time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := func() time.Time { return testNow }
	h := &harness{
		store: conversation.NewMemoryStore(conversation.WithClock(clock)),
		users: users.NewInMemoryRepository(),
		catalog: catalog.NewInMemoryRepository(catalog.Service{
			ID:              "svc-thai",
			Code:            "THAI60",
			Name:            "Thai Massage",
			Price:           800,
			DurationMinutes: 60,
			IsActive:        true,
		}),
		bookings: bookings.NewInMemoryRepository(bookings.WithClock(clock), bookings.WithLocation(time.UTC)),
		gateway:  &fakeGateway{},
	}
	svc := bookings.NewService(h.bookings, logging.Discard(), nil)
	h.machine = NewMachine(h.store, h.users, h.catalog, svc, h.gateway, logging.Discard(),
		WithClock(clock),
		WithSettings(Settings{Location: time.UTC}),
	)
	return h
}

func (h *harness) text(t *testing.T, body string) Result {
	t.Helper()
	res, err := h.machine.Handle(context.Background(), Event{Kind: EventMessage, UserID: testUser, ReplyToken: "rt", Text: body, IsText: true})
	require.NoError(t, err)
	return res
}

func (h *harness) postback(t *testing.T, data string) Result {
	t.Helper()
	res, err := h.machine.Handle(context.Background(), Event{Kind: EventPostback, UserID: testUser, ReplyToken: "rt", PostbackData: data})
	require.NoError(t, err)
	return res
}

func (h *harness) state(t *testing.T) conversation.State {
	t.Helper()
	state, err := h.store.GetState(context.Background(), testUser)
	require.NoError(t, err)
	return state
}

func (h *harness) data(t *testing.T) map[string]string {
	t.Helper()
	data, err := h.store.GetData(context.Background(), testUser)
	require.NoError(t, err)
	return data
}

func (h *harness) register(t *testing.T) {
	t.Helper()
	_, err := h.users.Register(context.Background(), testUser, "0812345678", nil)
	require.NoError(t, err)
}

func TestMachine_RegistrationSkippingEmail(t *testing.T) {
	h := newHarness(t)

	res := h.text(t, "สมัคร")
	assert.Equal(t, IntentRegister, res.Intent)
	assert.Equal(t, conversation.StateRegistrationPhone, h.state(t))

	h.text(t, "0812345678")
	assert.Equal(t, conversation.StateRegistrationEmail, h.state(t))
	assert.Equal(t, "0812345678", h.data(t)[conversation.KeyPhone])

	res = h.postback(t, "action=skip")
	assert.Equal(t, OutcomeRegistered, res.Outcome)
	assert.Equal(t, conversation.StateIdle, h.state(t))
	assert.Empty(t, h.data(t))

	user, err := h.users.GetByLineID(context.Background(), testUser)
	require.NoError(t, err)
	require.NotNil(t, user.Phone)
	assert.Equal(t, "0812345678", *user.Phone)
	assert.Nil(t, user.Email)
	assert.True(t, user.Registered())
}

func TestMachine_RegistrationWithEmail(t *testing.T) {
	h := newHarness(t)
	h.text(t, "สมัคร")
	h.text(t, "081-234-5678")

	h.text(t, "not-an-email")
	assert.Equal(t, conversation.StateRegistrationEmail, h.state(t))
	assert.Equal(t, textInvalidEmail, h.gateway.lastText(t))

	res := h.text(t, "a@b.co")
	assert.Equal(t, OutcomeRegistered, res.Outcome)
	assert.Equal(t, conversation.StateIdle, h.state(t))

	user, err := h.users.GetByLineID(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, "0812345678", *user.Phone)
	require.NotNil(t, user.Email)
	assert.Equal(t, "a@b.co", *user.Email)
}

func TestMachine_InvalidPhoneReprompts(t *testing.T) {
	h := newHarness(t)
	h.text(t, "สมัคร")

	res := h.text(t, "123456789")
	assert.Equal(t, OutcomeReprompt, res.Outcome)
	assert.Equal(t, conversation.StateRegistrationPhone, h.state(t))
	assert.Equal(t, textInvalidPhone, h.gateway.lastText(t))
	assert.Empty(t, h.data(t)[conversation.KeyPhone])
}

func TestMachine_RegisterWhenAlreadyMember(t *testing.T) {
	h := newHarness(t)
	h.register(t)

	res := h.postback(t, "action=register")
	assert.Equal(t, OutcomeInfo, res.Outcome)
	assert.Equal(t, conversation.StateIdle, h.state(t))
	assert.Equal(t, textAlreadyMember, h.gateway.lastText(t))
}

func TestMachine_BookRequiresRegistration(t *testing.T) {
	h := newHarness(t)

	res := h.postback(t, "action=book_service")
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Equal(t, conversation.StateIdle, h.state(t))
	assert.Equal(t, textRegisterFirst, h.gateway.lastText(t))
}

func TestMachine_BookingEndToEnd(t *testing.T) {
	h := newHarness(t)
	h.register(t)

	h.postback(t, "action=book_service")
	assert.Equal(t, conversation.StateBookingSelectService, h.state(t))
	carousel, ok := h.gateway.last(t).(Carousel)
	require.True(t, ok)
	require.Len(t, carousel.Cards, 1)

	h.postback(t, "action=select_service&serviceId=svc-thai")
	assert.Equal(t, conversation.StateBookingSelectDate, h.state(t))
	assert.Equal(t, "svc-thai", h.data(t)[conversation.KeyServiceID])
	assert.Equal(t, "Thai Massage", h.data(t)[conversation.KeyServiceName])
	assert.Equal(t, "800", h.data(t)[conversation.KeyPrice])

	h.postback(t, "action=select_date&date=2025-01-10")
	assert.Equal(t, conversation.StateBookingSelectTime, h.state(t))
	assert.Equal(t, "2025-01-10", h.data(t)[conversation.KeyDate])

	h.postback(t, "action=select_time&time=10:30")
	assert.Equal(t, conversation.StateBookingConfirm, h.state(t))
	assert.Equal(t, "10:30", h.data(t)[conversation.KeyTime])

	res := h.postback(t, "action=confirm_booking")
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	require.NotNil(t, res.Booking)
	assert.Equal(t, conversation.StateIdle, h.state(t))
	assert.Empty(t, h.data(t))

	all := h.bookings.All()
	require.Len(t, all, 1)
	assert.Equal(t, bookings.StatusPending, all[0].Status)
	assert.Equal(t, "BK202501050001", all[0].BookingNumber)
	assert.Equal(t, "2025-01-10", all[0].AppointmentDate)
	assert.Equal(t, "10:30", all[0].AppointmentTime)
	assert.Equal(t, 800.0, all[0].TotalAmount)
	assert.Equal(t, 60, all[0].DurationMinutes)

	_, ok = h.gateway.last(t).(Card)
	assert.True(t, ok)
}

func TestMachine_ConfirmReplayDoesNotDuplicate(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	h.postback(t, "action=book_service")
	h.postback(t, "action=select_service&serviceId=svc-thai")
	h.postback(t, "action=select_date&date=2025-01-10")
	h.postback(t, "action=select_time&time=10:30")
	h.postback(t, "action=confirm_booking")

	res := h.postback(t, "action=confirm_booking")
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Equal(t, textUnknownCommand, h.gateway.lastText(t))
	assert.Len(t, h.bookings.All(), 1)
}

func TestMachine_CancelFromEveryState(t *testing.T) {
	states := []conversation.State{
		conversation.StateRegistrationPhone,
		conversation.StateRegistrationEmail,
		conversation.StateBookingSelectService,
		conversation.StateBookingSelectDate,
		conversation.StateBookingSelectTime,
		conversation.StateBookingConfirm,
	}
	for _, state := range states {
		for _, trigger := range []string{"text", "postback", "back"} {
			t.Run(string(state)+"/"+trigger, func(t *testing.T) {
				h := newHarness(t)
				require.NoError(t, h.store.SetState(context.Background(), testUser, state, map[string]string{
					conversation.KeyPhone:     "0812345678",
					conversation.KeyServiceID: "svc-thai",
					conversation.KeyDate:      "2025-01-10",
					conversation.KeyTime:      "10:30",
				}))

				var res Result
				switch trigger {
				case "text":
					res = h.text(t, "ยกเลิก")
				case "postback":
					res = h.postback(t, "action=cancel")
				default:
					res = h.postback(t, "action=back")
				}
				assert.Equal(t, OutcomeCancelled, res.Outcome)
				assert.Equal(t, state, res.From)
				assert.Equal(t, conversation.StateIdle, h.state(t))
				assert.Empty(t, h.data(t))
				assert.Empty(t, h.bookings.All())
				assert.Equal(t, textCancelled, h.gateway.lastText(t))
			})
		}
	}
}

func TestMachine_ServiceNotFoundKeepsStep(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	h.postback(t, "action=book_service")

	res := h.postback(t, "action=select_service&serviceId=missing")
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.Equal(t, conversation.StateBookingSelectService, h.state(t))
	assert.Equal(t, textServiceNotFound, h.gateway.lastText(t))
}

func TestMachine_ServiceWithdrawnBeforeConfirm(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	h.postback(t, "action=book_service")
	h.postback(t, "action=select_service&serviceId=svc-thai")
	h.postback(t, "action=select_date&date=2025-01-10")
	h.postback(t, "action=select_time&time=10:30")
	h.catalog.Remove("svc-thai")

	res := h.postback(t, "action=confirm_booking")
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.Equal(t, conversation.StateBookingConfirm, h.state(t))
	assert.Equal(t, "svc-thai", h.data(t)[conversation.KeyServiceID])
	assert.Empty(t, h.bookings.All())

	h.postback(t, "action=cancel")
	assert.Equal(t, conversation.StateIdle, h.state(t))
}

func TestMachine_DateOutsideWindow(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	h.postback(t, "action=book_service")
	h.postback(t, "action=select_service&serviceId=svc-thai")

	for _, date := range []string{"2025-01-05", "2025-02-05", "2024-12-31"} {
		res := h.postback(t, "action=select_date&date="+date)
		assert.Equal(t, OutcomeReprompt, res.Outcome, date)
		assert.Equal(t, conversation.StateBookingSelectDate, h.state(t))
	}

	h.postback(t, "action=select_date&date=2025-02-04")
	assert.Equal(t, conversation.StateBookingSelectTime, h.state(t))
}

func TestMachine_TimeMustBeOffered(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	h.postback(t, "action=book_service")
	h.postback(t, "action=select_service&serviceId=svc-thai")
	h.postback(t, "action=select_date&date=2025-01-10")

	res := h.postback(t, "action=select_time&time=03:00")
	assert.Equal(t, OutcomeReprompt, res.Outcome)
	assert.Equal(t, conversation.StateBookingSelectTime, h.state(t))
}

func TestMachine_StepsOutOfOrderAreRejected(t *testing.T) {
	h := newHarness(t)
	h.register(t)

	res := h.postback(t, "action=select_time&time=10:30")
	assert.Equal(t, OutcomeRejected, res.Outcome)
	res = h.postback(t, "action=select_date&date=2025-01-10")
	assert.Equal(t, OutcomeRejected, res.Outcome)
	res = h.postback(t, "action=confirm_booking")
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Equal(t, conversation.StateIdle, h.state(t))
}

func TestMachine_SkipOutsideEmailStep(t *testing.T) {
	h := newHarness(t)
	h.text(t, "สมัคร")

	res := h.postback(t, "action=skip")
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Equal(t, conversation.StateRegistrationPhone, h.state(t))
	assert.Equal(t, textCannotSkip, h.gateway.lastText(t))
}

func TestMachine_FreeTextDuringBookingReprompts(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	h.postback(t, "action=book_service")
	h.postback(t, "action=select_service&serviceId=svc-thai")

	res := h.text(t, "พรุ่งนี้")
	assert.Equal(t, OutcomeReprompt, res.Outcome)
	assert.Equal(t, conversation.StateBookingSelectDate, h.state(t))
}

func TestMachine_ExpiredSessionIsIdle(t *testing.T) {
	h := newHarness(t)
	base := testNow
	now := base
	h.store = conversation.NewMemoryStore(conversation.WithClock(func() time.Time { return now }))
	h.machine.store = h.store

	h.text(t, "สมัคร")
	now = base.Add(31 * time.Minute)

	res := h.text(t, "0812345678")
	assert.Equal(t, conversation.StateIdle, res.From)
	assert.Equal(t, IntentHelp, res.Intent)
}

func TestMachine_NonTextMessage(t *testing.T) {
	h := newHarness(t)
	_, err := h.machine.Handle(context.Background(), Event{Kind: EventMessage, UserID: testUser, ReplyToken: "rt"})
	require.NoError(t, err)
	assert.Equal(t, textTextOnly, h.gateway.lastText(t))

	h.text(t, "สมัคร")
	_, err = h.machine.Handle(context.Background(), Event{Kind: EventMessage, UserID: testUser, ReplyToken: "rt"})
	require.NoError(t, err)
	assert.Equal(t, textTypeYourAnswer, h.gateway.lastText(t))
	assert.Equal(t, conversation.StateRegistrationPhone, h.state(t))
}

func TestMachine_InformationalIntents(t *testing.T) {
	h := newHarness(t)
	h.register(t)

	h.postback(t, "action=contact_us")
	assert.Equal(t, DefaultContactText, h.gateway.lastText(t))

	h.postback(t, "action=my_bookings")
	empty, ok := h.gateway.last(t).(Card)
	require.True(t, ok)
	assert.Equal(t, "ยังไม่มีการจอง", empty.Title)

	h.postback(t, "action=my_profile")
	_, ok = h.gateway.last(t).(Card)
	assert.True(t, ok)

	h.text(t, "hello")
	assert.Equal(t, textHelp, h.gateway.lastText(t))
	assert.Equal(t, conversation.StateIdle, h.state(t))
}

func TestMachine_FollowAndUnfollow(t *testing.T) {
	h := newHarness(t)
	h.gateway.profile = &Profile{DisplayName: "Somchai", PictureURL: "https://profile.line-scdn.net/x"}

	res, err := h.machine.Handle(context.Background(), Event{Kind: EventFollow, UserID: testUser, ReplyToken: "rt"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeInfo, res.Outcome)
	user, err := h.users.GetByLineID(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, "Somchai", user.DisplayName)
	assert.True(t, user.IsActive)
	_, ok := h.gateway.last(t).(Card)
	assert.True(t, ok)

	h.text(t, "สมัคร")
	_, err = h.machine.Handle(context.Background(), Event{Kind: EventUnfollow, UserID: testUser})
	require.NoError(t, err)
	user, err = h.users.GetByLineID(context.Background(), testUser)
	require.NoError(t, err)
	assert.False(t, user.IsActive)
	assert.Equal(t, conversation.StateIdle, h.state(t))
}

func TestMachine_FollowWithoutProfile(t *testing.T) {
	h := newHarness(t)
	h.gateway.profErr = errors.New("line: 404")

	_, err := h.machine.Handle(context.Background(), Event{Kind: EventFollow, UserID: testUser, ReplyToken: "rt"})
	require.NoError(t, err)
	user, err := h.users.GetByLineID(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, users.DefaultDisplayName, user.DisplayName)
}

func TestMachine_PushesWithoutReplyToken(t *testing.T) {
	h := newHarness(t)
	_, err := h.machine.Handle(context.Background(), Event{Kind: EventPostback, UserID: testUser, PostbackData: "action=contact_us"})
	require.NoError(t, err)
	require.Len(t, h.gateway.sent, 1)
	assert.Equal(t, testUser, h.gateway.sent[0].to)
}

func TestMachine_SendFailureIsReturned(t *testing.T) {
	h := newHarness(t)
	h.gateway.err = errors.New("line: 500")

	_, err := h.machine.Handle(context.Background(), Event{Kind: EventMessage, UserID: testUser, ReplyToken: "rt", Text: "สมัคร", IsText: true})
	require.Error(t, err)
	assert.Equal(t, conversation.StateRegistrationPhone, h.state(t))
}

func TestMachine_UnknownEventIgnored(t *testing.T) {
	h := newHarness(t)
	res, err := h.machine.Handle(context.Background(), Event{Kind: EventUnknown, UserID: testUser})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNone, res.Outcome)
	assert.Empty(t, h.gateway.sent)
}
