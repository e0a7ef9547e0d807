// Package lex holds the wire types for the Amazon Lex V1 dialog code hook.
//
// The types mirror the JSON contract documented at
// https://docs.aws.amazon.com/lex/latest/dg/lambda-input-response-format.html.
// They are defined here rather than pulled from a runtime events package
// because the bot depends on slotDetails.originalValue and the generic
// response card button shape, which the generic event types do not carry
// faithfully across versions.
package lex

// Event is the request Lex delivers to the fulfillment hook once per
// conversational turn.
type Event struct {
	MessageVersion    string            `json:"messageVersion"`
	InvocationSource  string            `json:"invocationSource"`
	UserID            string            `json:"userId"`
	InputTranscript   string            `json:"inputTranscript"`
	SessionAttributes map[string]string `json:"sessionAttributes"`
	CurrentIntent     *Intent           `json:"currentIntent"`
}

// Intent carries the intent name and the slot values collected so far.
// Unset slots arrive as null and decode to the empty string.
type Intent struct {
	Name               string                `json:"name"`
	Slots              map[string]string     `json:"slots"`
	SlotDetails        map[string]SlotDetail `json:"slotDetails"`
	ConfirmationStatus string                `json:"confirmationStatus"`
}

// SlotDetail exposes the text the user actually typed before Lex resolved it
// against the slot type.
type SlotDetail struct {
	OriginalValue string `json:"originalValue"`
}

// Confirmation status values.
const (
	ConfirmationNone      = "None"
	ConfirmationConfirmed = "Confirmed"
	ConfirmationDenied    = "Denied"
)

// Slot returns the resolved value for name, or "" when the slot is unset.
func (e Event) Slot(name string) string {
	if e.CurrentIntent == nil {
		return ""
	}
	return e.CurrentIntent.Slots[name]
}

// OriginalSlotValue returns the raw text the user entered for name.
func (e Event) OriginalSlotValue(name string) string {
	if e.CurrentIntent == nil {
		return ""
	}
	return e.CurrentIntent.SlotDetails[name].OriginalValue
}

// Response is the answer the hook returns to Lex.
type Response struct {
	SessionAttributes map[string]string `json:"sessionAttributes"`
	DialogAction      DialogAction      `json:"dialogAction"`
}

// DialogAction tells Lex what to do next: elicit a slot, confirm the intent,
// or close the conversation.
type DialogAction struct {
	Type             string            `json:"type"`
	FulfillmentState string            `json:"fulfillmentState,omitempty"`
	IntentName       string            `json:"intentName,omitempty"`
	Slots            map[string]string `json:"slots,omitempty"`
	SlotToElicit     string            `json:"slotToElicit,omitempty"`
	Message          *Message          `json:"message,omitempty"`
	ResponseCard     *ResponseCard     `json:"responseCard,omitempty"`
}

// Message is a plain-text prompt shown to the user.
type Message struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// ElicitSlot prompts the user for one named slot, optionally with a response
// card of selectable options.
func ElicitSlot(attrs map[string]string, intentName string, slots map[string]string, slotToElicit, message string, card *ResponseCard) Response {
	return Response{
		SessionAttributes: attrs,
		DialogAction: DialogAction{
			Type:         "ElicitSlot",
			IntentName:   intentName,
			Slots:        slots,
			SlotToElicit: slotToElicit,
			Message:      &Message{ContentType: "PlainText", Content: message},
			ResponseCard: card,
		},
	}
}

// ConfirmIntent asks the user a yes/no question about the intent as a whole.
func ConfirmIntent(attrs map[string]string, intentName string, slots map[string]string, message string) Response {
	return Response{
		SessionAttributes: attrs,
		DialogAction: DialogAction{
			Type:       "ConfirmIntent",
			IntentName: intentName,
			Slots:      slots,
			Message:    &Message{ContentType: "PlainText", Content: message},
		},
	}
}

// Close ends the conversation with a final message. Session attributes are
// dropped so the next conversation starts clean.
func Close(message string) Response {
	return Response{
		SessionAttributes: map[string]string{},
		DialogAction: DialogAction{
			Type:             "Close",
			FulfillmentState: "Fulfilled",
			Message:          &Message{ContentType: "PlainText", Content: message},
		},
	}
}
