package models

import "time"

// CleanedData is the result payload of the data cleaning pipeline.
type CleanedData struct {
	OriginalData     *Map      `json:"original_data"`
	CleanedData      *Map      `json:"cleaned_data"`
	ValidationErrors []string  `json:"validation_errors"`
	CleanedAt        time.Time `json:"cleaned_at"`
}

// EmailData is the result payload of the email parsing pipeline.
type EmailData struct {
	Sender       string    `json:"sender"`
	Subject      string    `json:"subject"`
	Body         string    `json:"body"`
	ReceivedDate time.Time `json:"received_date"`
	Attachments  []string  `json:"attachments"`
	Metadata     *Map      `json:"metadata"`
}

// Metadata keys captured from email headers.
const (
	MetaMessageID = "message_id"
	MetaTo        = "to"
	MetaCc        = "cc"
)

func (*CleanedData) workflowPayload() {}
func (*EmailData) workflowPayload()   {}
