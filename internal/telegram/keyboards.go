package telegram

import (
	"fmt"

	"github.com/PaulSonOfLars/gotgbot/v2"
)

// ShareLocationLabel is the text of the location request button
const ShareLocationLabel = "📍 Share location"

// LocationKeyboard creates a one-shot reply keyboard with a single button
// that sends the user's location. Telegram only honours it in private chats.
func LocationKeyboard() gotgbot.ReplyKeyboardMarkup {
	return gotgbot.ReplyKeyboardMarkup{
		Keyboard: [][]gotgbot.KeyboardButton{
			{
				{Text: ShareLocationLabel, RequestLocation: true},
			},
		},
		ResizeKeyboard:        true,
		OneTimeKeyboard:       true,
		InputFieldPlaceholder: "Tap the button to share your location",
	}
}

// RemoveKeyboard hides a reply keyboard sent earlier
func RemoveKeyboard() gotgbot.ReplyKeyboardRemove {
	return gotgbot.ReplyKeyboardRemove{RemoveKeyboard: true}
}

// FormatLocation renders a shared location as "lat,lon"
func FormatLocation(loc *gotgbot.Location) string {
	return fmt.Sprintf("%.5f,%.5f", loc.Latitude, loc.Longitude)
}
