// README: Twilio REST client used for WhatsApp messages.
package infra

import "github.com/twilio/twilio-go"

func NewTwilio(accountSID, authToken string) *twilio.RestClient {
	return twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
}
