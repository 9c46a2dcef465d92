// Package notify delivers push notifications through a Bark server.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spacefleet/spacefleet/internal/errors"
)

// Notifier sends one notification. Satisfied by the Bark client and by test
// fakes.
type Notifier interface {
	Send(ctx context.Context, barkURL, title, body, sound string) error
}

// Bark pushes notifications to a Bark server via its GET API. The device key
// is part of the rule's URL, so one client serves every rule.
type Bark struct {
	httpClient *http.Client
}

func NewBark() *Bark {
	return &Bark{httpClient: &http.Client{Timeout: 10 * time.Second}}
}

type barkResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Send delivers a notification. A non-200 code in the response body counts
// as failure even when the HTTP status is 200.
func (b *Bark) Send(ctx context.Context, barkURL, title, body, sound string) error {
	u := strings.TrimRight(barkURL, "/") +
		"/" + url.PathEscape(title) +
		"/" + url.PathEscape(body)
	if sound != "" {
		u += "?sound=" + url.QueryEscape(sound)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrNotify, "Invalid Bark URL", "")
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrNotify,
			"Can't reach Bark server",
			"Check the bark_url on the alert rule.")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrNotify, "Can't read Bark response", "")
	}

	var parsed barkResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return errors.New(errors.ErrNotify,
			fmt.Sprintf("Unexpected Bark response (HTTP %d)", resp.StatusCode), "")
	}
	if parsed.Code != 200 {
		return errors.New(errors.ErrNotify,
			fmt.Sprintf("Bark rejected the notification: %d %s", parsed.Code, parsed.Message), "")
	}
	return nil
}
