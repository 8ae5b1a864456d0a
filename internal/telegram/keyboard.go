package telegram

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Callback verbs carried in inline button data. Session-scoped verbs
// omit a trip key because the session is found by chat id; trip-scoped
// verbs carry the trip short code after a colon.
const (
	CallbackDateSelect  = "datesel"
	CallbackDatePick    = "datepick" // datepick:2025-09-21
	CallbackTimePick    = "timepick" // timepick:<epoch>
	CallbackRideNow     = "now"
	CallbackUsePhone    = "usephone"
	CallbackChangePhone = "changephone"
	CallbackConfirm     = "confirm"
	CallbackAbort       = "abort"    // cancel during the dialog
	CallbackAccept      = "accept"   // accept:<code>, from a driver
	CallbackDecline     = "decline"  // decline:<code>, from a driver
	CallbackDepart      = "depart"   // depart:<code>, assigned driver only
	CallbackFinish      = "finish"   // finish:<code>, assigned driver only
	CallbackCancelTrip  = "cancel"   // cancel:<code>, passenger or assigned driver
)

// Button is one inline keyboard button.
type Button struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// Markup is either an inline keyboard or a persistent reply keyboard.
type Markup struct {
	Inline [][]Button
	Reply  [][]string
}

func (m *Markup) encode() (string, error) {
	if len(m.Inline) > 0 {
		encoded, err := json.Marshal(map[string]any{"inline_keyboard": m.Inline})
		return string(encoded), err
	}

	rows := make([][]map[string]string, 0, len(m.Reply))
	for _, row := range m.Reply {
		buttons := make([]map[string]string, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, map[string]string{"text": label})
		}
		rows = append(rows, buttons)
	}
	encoded, err := json.Marshal(map[string]any{
		"keyboard":          rows,
		"resize_keyboard":   true,
		"one_time_keyboard": false,
	})
	return string(encoded), err
}

// Reply keyboard labels for the main menu.
const (
	MenuNewRide  = "📝 New ride"
	MenuMyTrips  = "🚖 My trips"
	MenuSettings = "⚙️ Settings"
	MenuHelp     = "ℹ️ Help"
)

// MainMenu is the persistent passenger menu.
func MainMenu() *Markup {
	return &Markup{Reply: [][]string{
		{MenuNewRide, MenuMyTrips},
		{MenuSettings, MenuHelp},
	}}
}

// ScheduleChoiceKeyboard offers riding now versus picking a slot.
func ScheduleChoiceKeyboard() *Markup {
	return &Markup{Inline: [][]Button{
		{{Text: "🚗 Now", CallbackData: CallbackRideNow}},
		{{Text: "📆 Pick date & time", CallbackData: CallbackDateSelect}},
		{{Text: "✖️ Cancel", CallbackData: CallbackAbort}},
	}}
}

// DateKeyboard builds date buttons starting from today for daysAhead days.
func DateKeyboard(now time.Time, loc *time.Location, daysAhead int) *Markup {
	today := now.In(loc)
	var rows [][]Button
	for i := 0; i < daysAhead; i++ {
		d := today.AddDate(0, 0, i)
		label := d.Format("Mon, Jan 02")
		if i == 0 {
			label = "Today, " + label
		}
		rows = append(rows, []Button{{
			Text:         label,
			CallbackData: CallbackDatePick + ":" + d.Format("2006-01-02"),
		}})
	}
	return &Markup{Inline: rows}
}

// TimeSlotKeyboard builds 30-minute slots from 6:00 AM to 11:30 PM on
// the given date. Callback data carries the slot's epoch seconds.
func TimeSlotKeyboard(year int, month time.Month, day int, loc *time.Location) *Markup {
	var rows [][]Button
	cur := time.Date(year, month, day, 6, 0, 0, 0, loc)
	end := time.Date(year, month, day, 23, 59, 0, 0, loc)
	for !cur.After(end) {
		rows = append(rows, []Button{{
			Text:         FormatClock(cur),
			CallbackData: CallbackTimePick + ":" + strconv.FormatInt(cur.Unix(), 10),
		}})
		cur = cur.Add(30 * time.Minute)
	}
	return &Markup{Inline: rows}
}

// PhoneChoiceKeyboard offers reusing the saved phone or typing a new one.
func PhoneChoiceKeyboard() *Markup {
	return &Markup{Inline: [][]Button{
		{{Text: "Use saved phone", CallbackData: CallbackUsePhone}},
		{{Text: "Enter new number", CallbackData: CallbackChangePhone}},
	}}
}

// ConfirmKeyboard shows the frozen fare on the confirm button.
func ConfirmKeyboard(fare float64) *Markup {
	return &Markup{Inline: [][]Button{
		{{Text: fmt.Sprintf("Confirm $%.2f", fare), CallbackData: CallbackConfirm}},
		{{Text: "✖️ Cancel", CallbackData: CallbackAbort}},
	}}
}

// DriverOfferKeyboard is sent to every candidate driver at fan-out.
func DriverOfferKeyboard(shortCode string) *Markup {
	return &Markup{Inline: [][]Button{
		{{Text: "Accept " + shortCode, CallbackData: CallbackAccept + ":" + shortCode}},
		{{Text: "Decline " + shortCode, CallbackData: CallbackDecline + ":" + shortCode}},
	}}
}

// DriverProgressKeyboard is shown to the winning driver to advance the trip.
func DriverProgressKeyboard(shortCode string, status string) *Markup {
	switch status {
	case "ON_THE_WAY":
		return &Markup{Inline: [][]Button{
			{{Text: "🚙 Picked up, start trip", CallbackData: CallbackDepart + ":" + shortCode}},
			{{Text: "✖️ Cancel trip", CallbackData: CallbackCancelTrip + ":" + shortCode}},
		}}
	case "STARTED":
		return &Markup{Inline: [][]Button{
			{{Text: "🏁 Finish trip", CallbackData: CallbackFinish + ":" + shortCode}},
		}}
	default:
		return nil
	}
}

// PassengerCancelKeyboard lets the passenger cancel a live trip.
func PassengerCancelKeyboard(shortCode string) *Markup {
	return &Markup{Inline: [][]Button{
		{{Text: "✖️ Cancel request", CallbackData: CallbackCancelTrip + ":" + shortCode}},
	}}
}

// FormatClock formats a time as "6:30 PM".
func FormatClock(t time.Time) string {
	return t.Format("3:04 PM")
}
