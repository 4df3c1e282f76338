package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Notifier is the boundary to the email collaborator. Every call is
// fire-and-forget with an at-most-once attempt: failures are logged and never
// surface to the state change that triggered them.
type Notifier interface {
	SendBadgeNotification(userID, achievementName string) error
	SendStreakLostEmail(userID string, lostDays int) error
}

// NotificationClient posts notification requests to the email service.
type NotificationClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewNotificationClient(baseURL, token string) *NotificationClient {
	return &NotificationClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *NotificationClient) post(path string, payload map[string]interface{}) error {
	jsonData, _ := json.Marshal(payload)
	req, err := http.NewRequest("POST", c.BaseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification service returned %d", resp.StatusCode)
	}
	return nil
}

func (c *NotificationClient) SendBadgeNotification(userID, achievementName string) error {
	return c.post("/notifications/badge", map[string]interface{}{
		"user_id":          userID,
		"achievement_name": achievementName,
	})
}

func (c *NotificationClient) SendStreakLostEmail(userID string, lostDays int) error {
	return c.post("/notifications/streak-lost", map[string]interface{}{
		"user_id":   userID,
		"lost_days": lostDays,
	})
}

// notifyBestEffort makes an at-most-once notification attempt. Failures are
// logged and swallowed; the state change that triggered the send never rolls
// back because of it.
func notifyBestEffort(name string, send func() error) {
	if err := send(); err != nil {
		log.Printf("notification %s failed (ignored): %v", name, err)
	}
}

// NoopNotifier discards all notifications. Used when no notification service
// is configured and in tests.
type NoopNotifier struct{}

func (NoopNotifier) SendBadgeNotification(userID, achievementName string) error { return nil }
func (NoopNotifier) SendStreakLostEmail(userID string, lostDays int) error      { return nil }
