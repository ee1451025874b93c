// Package connectors fetches raw messages from mail providers, archives
// them on disk, and parses them into the pipeline's input form.
package connectors

import "quotedesk/internal"

type MailConnector interface {
	FetchInbox(label string, max int) ([]internal.FetchedMailMessage, error)
}
