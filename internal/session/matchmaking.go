package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// roomAssignment is the matchmaking response. The call is treated as opaque:
// one GET, one JSON body, no retries here (the reconnect loop retries the
// whole connect).
type roomAssignment struct {
	Room  string `json:"room"`
	WSURL string `json:"wsUrl"`
}

const matchTimeout = 5 * time.Second

func requestMatch(ctx context.Context, client *http.Client, lobbyURL, room string) (roomAssignment, error) {
	ctx, cancel := context.WithTimeout(ctx, matchTimeout)
	defer cancel()

	u, err := url.Parse(lobbyURL)
	if err != nil {
		return roomAssignment{}, fmt.Errorf("parse lobby url: %w", err)
	}
	q := u.Query()
	if room != "" {
		q.Set("room", room)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return roomAssignment{}, fmt.Errorf("build match request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return roomAssignment{}, fmt.Errorf("matchmaking request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return roomAssignment{}, fmt.Errorf("matchmaking status %d", resp.StatusCode)
	}

	var assignment roomAssignment
	if err := json.NewDecoder(resp.Body).Decode(&assignment); err != nil {
		return roomAssignment{}, fmt.Errorf("decode match response: %w", err)
	}
	if assignment.WSURL == "" {
		return roomAssignment{}, fmt.Errorf("matchmaking returned no socket url")
	}
	return assignment, nil
}

// socketURL appends the room to a websocket endpoint.
func socketURL(base, room string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	if room != "" {
		q := u.Query()
		q.Set("room", room)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
