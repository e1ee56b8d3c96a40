package commands

import "fmt"

// User-facing texts. Other integrations match on these, so they must not
// change.
const (
	createUsageText   = "Please provide a name for the trip channel. Usage: `/trip create <channel-name>`"
	shareLocationText = "Share your Location with us, We will use your device **IP address** to get your location"
)

func alreadyExistsText(name string) string {
	return fmt.Sprintf("Trip channel with name '%s' already exists. Enjoy app's features there!🚀", name)
}

func createdText(name string) string {
	return fmt.Sprintf("Your Trip channel %s created successfully!, Enjoy your trip! 🚀", name)
}

func createFailedText(name string) string {
	return fmt.Sprintf("Failed to create Trip channel %s. Please try again with a different name.", name)
}

func currentLocationText(loc string) string {
	return fmt.Sprintf("Your current location is set to %s. Want to change your location? \n We will use your device **IP address** to get your location", loc)
}

func invalidCommandText(cmd string) string {
	return fmt.Sprintf("**Invalid subcommand**: \"%s\". Type `/trip help` for a list of available commands.", cmd)
}
