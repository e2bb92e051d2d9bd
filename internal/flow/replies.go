package flow

import (
	"fmt"
	"strconv"
	"time"

	"github.com/wolfman30/spa-line-booking/internal/bookings"
	"github.com/wolfman30/spa-line-booking/internal/catalog"
	"github.com/wolfman30/spa-line-booking/internal/users"
)

const (
	colorAccent = "#27ACB2"
	colorMuted  = "#999999"
	colorBody   = "#333333"

	displayDateLayout = "02/01/2006"
)

// DefaultContactText is sent for contact_us when no CONTACT_TEXT is configured.
const DefaultContactText = "📞 ติดต่อเรา\n\nโทรศัพท์: 02-XXX-XXXX\nEmail: contact@yourspa.com\nLine: @yourspa\n\nเวลาทำการ:\nจันทร์ - เสาร์: 10:00 - 20:00\nอาทิตย์: 10:00 - 18:00"

const (
	textAlreadyMember      = "คุณเป็นสมาชิกอยู่แล้วค่ะ! 🎉\nสามารถจองบริการได้เลย"
	textPhonePrompt        = "📝 สมัครสมาชิก\n\nกรุณาพิมพ์หมายเลขโทรศัพท์ของคุณ\n(ตัวอย่าง: 0812345678)"
	textInvalidPhone       = "หมายเลขโทรศัพท์ไม่ถูกต้อง\nกรุณาพิมพ์ใหม่ (ตัวอย่าง: 0812345678)"
	textEmailPrompt        = "เบอร์โทร: %s ✅\n\nกรุณาพิมพ์อีเมลของคุณ\nหรือกด \"ข้าม\" หากไม่ต้องการระบุ"
	textInvalidEmail       = "อีเมลไม่ถูกต้อง\nกรุณาพิมพ์ใหม่ หรือกด \"ข้าม\""
	textRegistered         = "🎉 สมัครสมาชิกสำเร็จ!\n\nขอบคุณที่สมัครสมาชิกกับเรา\nตอนนี้คุณสามารถจองบริการสปาได้แล้ว"
	textWelcomeBack        = "ยินดีต้อนรับกลับมา %s! 🙏\n\nคุณเข้าสู่ระบบเรียบร้อยแล้ว\nสามารถใช้งานได้ทันที"
	textNotMember          = "คุณยังไม่ได้เป็นสมาชิก\nกรุณาสมัครสมาชิกก่อนค่ะ"
	textRegisterFirst      = "กรุณาสมัครสมาชิกก่อนจองบริการค่ะ"
	textServiceNotFound    = "ไม่พบบริการนี้ กรุณาเลือกใหม่"
	textServiceChosen      = "เลือก \"%s\" แล้ว ✅\nราคา: ฿%s\nระยะเวลา: %d นาที\n\nกรุณาเลือกวันที่ต้องการจอง"
	textPickService        = "กรุณาเลือกบริการจากรายการ"
	textPickDate           = "กรุณาเลือกวันที่ต้องการจอง"
	textDateOutOfRange     = "ไม่สามารถจองวันที่นี้ได้\nกรุณาเลือกวันที่ระหว่าง %s - %s"
	textDateChosen         = "วันที่: %s ✅\n\nกรุณาเลือกเวลาที่ต้องการ"
	textInvalidTime        = "ไม่มีช่วงเวลานี้\nกรุณาเลือกเวลาจากตัวเลือก"
	textSummary            = "📋 สรุปการจอง\n\nบริการ: %s\nวันที่: %s\nเวลา: %s\nราคา: ฿%s\n\nยืนยันการจองหรือไม่?"
	textGenericError       = "เกิดข้อผิดพลาด กรุณาลองใหม่"
	textSelectedSvcMissing = "ไม่พบบริการที่เลือก กรุณาลองใหม่"
	textCannotSkip         = "ไม่สามารถข้ามขั้นตอนนี้ได้"
	textCancelled          = "ยกเลิกเรียบร้อยแล้ว ✅\n\nหากต้องการเริ่มใหม่ กรุณาเลือกจากเมนู"
	textUnknownCommand     = "ไม่รู้จักคำสั่งนี้"
	textTextOnly           = "ขอโทษค่ะ ระบบรองรับเฉพาะข้อความตัวอักษร\nกรุณาเลือกจากเมนูด้านล่าง หรือพิมพ์คำสั่ง"
	textTypeYourAnswer     = "กรุณาพิมพ์ข้อความตอบกลับ"
	textNoServices         = "ขออภัยค่ะ ยังไม่มีบริการในระบบ"
	textUserNotFound       = "ไม่พบข้อมูลผู้ใช้ กรุณาสมัครสมาชิก"
	textCourse             = "🎓 คอร์สสปาพิเศษ\n\nขออภัยค่ะ ฟีเจอร์การซื้อคอร์สกำลังอยู่ในระหว่างการพัฒนา\nโปรดติดตามข่าวสารต่อไปค่ะ"
	textHelp               = "🔰 คำสั่งที่ใช้ได้:\n\n• \"สมัคร\" - สมัครสมาชิก\n• \"จอง\" - จองบริการ\n• \"บริการ\" - ดูรายการบริการ\n• \"การจอง\" - ดูการจองของฉัน\n• \"โปรไฟล์\" - ดูข้อมูลส่วนตัว\n• \"เมนู\" - แสดงเมนูหลัก\n• \"ยกเลิก\" - ยกเลิกขั้นตอนปัจจุบัน\n\nหรือเลือกจากเมนูด้านล่าง"
)

func choice(label, data string) Choice {
	return Choice{Label: label, Data: data, DisplayText: label}
}

func choiceShown(label, display, data string) Choice {
	return Choice{Label: label, Data: data, DisplayText: display}
}

func say(body string, choices ...Choice) Text {
	return Text{Body: body, Choices: choices}
}

var (
	cancelChoice        = choice("ยกเลิก", PostbackData(ActionCancel))
	cancelBookingChoice = choiceShown("ยกเลิก", "ยกเลิกการจอง", PostbackData(ActionCancel))
	skipEmailChoice     = choiceShown("ข้าม", "ข้ามอีเมล", PostbackData(ActionSkip))
	registerChoice      = choice("สมัครสมาชิก", PostbackData(ActionRegister))
	bookChoice          = choice("จองบริการ", PostbackData(ActionBookService))
	servicesChoice      = choice("ดูบริการ", PostbackData(ActionViewServices))
)

func formatDisplayDate(date string) string {
	t, err := time.Parse(bookings.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format(displayDateLayout)
}

func phonePrompt() Message {
	return say(textPhonePrompt, choiceShown("ยกเลิก", "ยกเลิกการสมัคร", PostbackData(ActionCancel)))
}

func invalidPhone() Message {
	return say(textInvalidPhone, cancelChoice)
}

func emailPrompt(phone string) Message {
	return say(fmt.Sprintf(textEmailPrompt, phone), skipEmailChoice, cancelChoice)
}

func invalidEmail() Message {
	return say(textInvalidEmail, skipEmailChoice, cancelChoice)
}

func alreadyMember() Message {
	return say(textAlreadyMember, bookChoice, choice("ดูโปรไฟล์", PostbackData(ActionMyProfile)))
}

func registered() Message {
	return say(textRegistered, bookChoice, servicesChoice)
}

func welcomeBack(name string) Message {
	return say(fmt.Sprintf(textWelcomeBack, name), bookChoice, choice("การจองของฉัน", PostbackData(ActionMyBookings)))
}

func notMember() Message {
	return say(textNotMember, registerChoice)
}

func registerFirst() Message {
	return say(textRegisterFirst, registerChoice)
}

func userNotFound() Message {
	return say(textUserNotFound, registerChoice)
}

func pickService() Message {
	return say(textPickService, servicesChoice, cancelBookingChoice)
}

func datePickerChoice(picker DatePicker) Choice {
	return Choice{
		Label:       "เลือกวันที่",
		Data:        PostbackData(ActionSelectDate),
		DisplayText: "เลือกวันที่",
		DatePicker:  &picker,
	}
}

func serviceChosen(svc *catalog.Service, picker DatePicker) Message {
	body := fmt.Sprintf(textServiceChosen, svc.Name, formatPrice(svc.Price), svc.DurationMinutes)
	return say(body, datePickerChoice(picker), cancelBookingChoice)
}

func pickDate(picker DatePicker) Message {
	return say(textPickDate, datePickerChoice(picker), cancelBookingChoice)
}

func dateOutOfRange(picker DatePicker) Message {
	body := fmt.Sprintf(textDateOutOfRange, formatDisplayDate(picker.Min), formatDisplayDate(picker.Max))
	return say(body, datePickerChoice(picker), cancelBookingChoice)
}

func slotChoices(slots []string) []Choice {
	choices := make([]Choice, 0, len(slots)+1)
	for _, slot := range slots {
		choices = append(choices, choice(slot, PostbackData(ActionSelectTime, "time", slot)))
	}
	return append(choices, cancelBookingChoice)
}

func dateChosen(date string, slots []string) Message {
	return say(fmt.Sprintf(textDateChosen, formatDisplayDate(date)), slotChoices(slots)...)
}

func invalidTime(slots []string) Message {
	return say(textInvalidTime, slotChoices(slots)...)
}

func summary(d Draft) Message {
	body := fmt.Sprintf(textSummary, d.ServiceName, formatDisplayDate(d.Date), d.Time, formatPrice(d.Price))
	return say(body,
		choiceShown("✅ ยืนยัน", "ยืนยันการจอง", PostbackData(ActionConfirmBooking)),
		choiceShown("❌ ยกเลิก", "ยกเลิกการจอง", PostbackData(ActionCancel)),
	)
}

func course() Message {
	return say(textCourse, servicesChoice, choice("ติดต่อเรา", PostbackData(ActionContactUs)))
}

func plain(body string) Message {
	return say(body)
}

func serviceCard(svc catalog.Service) Card {
	price := "฿" + formatPrice(svc.Price)
	if svc.MemberPrice != nil && *svc.MemberPrice < svc.Price {
		price = fmt.Sprintf("฿%s (สมาชิก) / ฿%s", formatPrice(*svc.MemberPrice), formatPrice(svc.Price))
	}
	desc := svc.Description
	if desc == "" {
		desc = "บริการสปาคุณภาพ"
	}
	return Card{
		AltText:  svc.Name,
		Title:    svc.Name,
		Subtitle: svc.Category,
		Body:     desc,
		Fields: []Field{
			{Label: "ราคา", Value: price, Color: colorBody},
			{Label: "เวลา", Value: fmt.Sprintf("%d นาที", svc.DurationMinutes), Color: colorBody},
		},
		Buttons: []Button{{
			Label:       "จองบริการนี้",
			Data:        PostbackData(ActionSelectService, "serviceId", svc.ID),
			DisplayText: "จอง " + svc.Name,
			Primary:     true,
		}},
	}
}

// LINE caps a carousel at 12 bubbles.
const maxCarouselCards = 12

func servicesCarousel(services []catalog.Service) Message {
	if len(services) > maxCarouselCards {
		services = services[:maxCarouselCards]
	}
	cards := make([]Card, 0, len(services))
	for _, svc := range services {
		cards = append(cards, serviceCard(svc))
	}
	return Carousel{AltText: "บริการสปาของเรา", Cards: cards}
}

func bookingConfirmation(b *bookings.Booking) Message {
	return Card{
		AltText:  "การจองหมายเลข " + b.BookingNumber,
		Title:    "การจองสำเร็จ",
		Subtitle: "หมายเลขการจอง: " + b.BookingNumber,
		Accent:   colorAccent,
		Fields: []Field{
			{Label: "บริการ", Value: b.ServiceName, Color: colorBody},
			{Label: "วันที่", Value: formatDisplayDate(b.AppointmentDate), Color: colorBody},
			{Label: "เวลา", Value: b.AppointmentTime, Color: colorBody},
			{Label: "ระยะเวลา", Value: fmt.Sprintf("%d นาที", b.DurationMinutes), Color: colorBody},
			{Label: "ยอดรวม", Value: "฿" + formatPrice(b.TotalAmount), Color: colorAccent},
		},
		Buttons: []Button{{Label: "ดูการจองทั้งหมด", Data: PostbackData(ActionMyBookings), DisplayText: "ดูการจองทั้งหมด"}},
	}
}

func statusLabel(status string) (string, string) {
	switch status {
	case bookings.StatusPending:
		return "รอยืนยัน", "#FFA500"
	case bookings.StatusConfirmed:
		return "ยืนยันแล้ว", colorAccent
	case bookings.StatusCompleted:
		return "เสร็จสิ้น", "#2ECC71"
	case bookings.StatusCancelled:
		return "ยกเลิก", "#E74C3C"
	default:
		return status, colorMuted
	}
}

func bookingsList(list []bookings.Booking) Message {
	if len(list) == 0 {
		return Card{
			AltText:  "ไม่มีการจอง",
			Title:    "ยังไม่มีการจอง",
			Subtitle: "คุณยังไม่มีประวัติการจองบริการ",
			Buttons:  []Button{{Label: "จองบริการ", Data: PostbackData(ActionBookService), DisplayText: "จองบริการ", Primary: true}},
		}
	}
	if len(list) > maxCarouselCards {
		list = list[:maxCarouselCards]
	}
	cards := make([]Card, 0, len(list))
	for _, b := range list {
		status, color := statusLabel(b.Status)
		name := b.ServiceName
		if name == "" {
			name = "ไม่ระบุบริการ"
		}
		cards = append(cards, Card{
			AltText:  b.BookingNumber,
			Title:    name,
			Subtitle: "#" + b.BookingNumber,
			Fields: []Field{
				{Label: "สถานะ", Value: status, Color: color},
				{Label: "วันที่", Value: formatDisplayDate(b.AppointmentDate), Color: colorBody},
				{Label: "เวลา", Value: b.AppointmentTime, Color: colorBody},
			},
		})
	}
	return Carousel{AltText: "การจองของคุณ", Cards: cards}
}

func membershipLabel(level string) string {
	switch level {
	case "STANDARD":
		return "สมาชิกทั่วไป"
	case "SILVER":
		return "สมาชิก Silver"
	case "GOLD":
		return "สมาชิก Gold"
	case "PLATINUM":
		return "สมาชิก Platinum"
	default:
		return level
	}
}

func valueOr(p *string, fallback string) string {
	if p == nil || *p == "" {
		return fallback
	}
	return *p
}

func profileCard(u *users.User) Message {
	return Card{
		AltText: "โปรไฟล์ของคุณ",
		Title:   "โปรไฟล์ของฉัน",
		Accent:  colorAccent,
		Fields: []Field{
			{Label: "ชื่อ", Value: u.DisplayName, Color: colorBody},
			{Label: "เบอร์โทร", Value: valueOr(u.Phone, "ยังไม่ได้ระบุ"), Color: colorBody},
			{Label: "อีเมล", Value: valueOr(u.Email, "ยังไม่ได้ระบุ"), Color: colorBody},
			{Label: "ระดับสมาชิก", Value: membershipLabel(u.MembershipLevel), Color: colorAccent},
			{Label: "แต้มสะสม", Value: strconv.Itoa(u.Points) + " แต้ม", Color: colorBody},
			{Label: "ยอดใช้จ่ายรวม", Value: "฿" + formatPrice(u.TotalSpent), Color: colorBody},
		},
	}
}

func welcomeCard(displayName string) Message {
	return Card{
		AltText:  "ยินดีต้อนรับ " + displayName,
		Title:    "ยินดีต้อนรับ " + displayName,
		Subtitle: "ขอบคุณที่เพิ่มเพื่อนกับเรา! เริ่มต้นใช้งานได้เลย",
		Body:     "สิ่งที่คุณสามารถทำได้:\n• สมัครสมาชิก\n• จองบริการสปา\n• ซื้อคอร์สสปา\n• ดูประวัติการจอง",
		Accent:   colorAccent,
		Buttons: []Button{
			{Label: "สมัครสมาชิก", Data: PostbackData(ActionRegister), DisplayText: "สมัครสมาชิก", Primary: true},
			{Label: "ดูบริการทั้งหมด", Data: PostbackData(ActionViewServices), DisplayText: "ดูบริการทั้งหมด"},
		},
	}
}

func mainMenuCard() Message {
	return Card{
		AltText:  "เมนูหลัก",
		Title:    "เมนูหลัก",
		Subtitle: "เลือกสิ่งที่คุณต้องการทำ",
		Buttons: []Button{
			{Label: "จองบริการสปา", Data: PostbackData(ActionBookService), DisplayText: "จองบริการสปา", Primary: true},
			{Label: "ดูบริการ/คอร์ส", Data: PostbackData(ActionViewServices), DisplayText: "ดูบริการ/คอร์ส"},
			{Label: "การจองของฉัน", Data: PostbackData(ActionMyBookings), DisplayText: "การจองของฉัน"},
			{Label: "โปรไฟล์", Data: PostbackData(ActionMyProfile), DisplayText: "โปรไฟล์"},
		},
	}
}
