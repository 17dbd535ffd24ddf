// Package channel is the outbound boundary to the messaging gateway. The
// pipeline only ever sees the Adapter interface; the HTTP implementation
// handles retry and per-session rate limiting.
package channel

import "context"

// FilePayload describes a document sent to the customer.
type FilePayload struct {
	URL           string
	FileName      string
	DocumentTitle string
}

// Adapter sends outbound messages through the channel gateway. All methods
// are blocking and must be called with a bounded context.
type Adapter interface {
	SendText(ctx context.Context, sessionID, phone, text string) error
	SendAudio(ctx context.Context, sessionID, phone, audioURL string) error
	SendFile(ctx context.Context, sessionID, phone string, file *FilePayload) error
}
