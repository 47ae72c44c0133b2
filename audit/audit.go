// SPDX-License-Identifier: GPL-3.0-only

// Package audit emits structured audit entries for security-relevant
// actions. Entries always land in the application log as JSON; when an
// AMQP broker is configured they are additionally fanned out to an
// exchange for external consumers.
package audit

import (
	"encoding/json"
	"time"
	"vulnmgr-server/commons"
)

type Entry struct {
	Timestamp time.Time      `json:"ts"`
	Action    string         `json:"action"`
	Status    string         `json:"status"`
	ActorID   string         `json:"actor_id,omitempty"`
	IP        string         `json:"ip,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	Target    map[string]any `json:"target,omitempty"`
}

// Log records one audit entry. An empty Status defaults to "success".
func Log(entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.Status == "" {
		entry.Status = "success"
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		commons.Logger.Errorf("Failed to marshal audit entry for %s: %v", entry.Action, err)
		return
	}

	commons.Logger.Infof("audit %s", payload)
	publish(entry.Action, payload)
}
