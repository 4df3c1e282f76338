package services

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"theory-gamification-system/models"
)

// SkillSignalProvider abstracts the external skill assessment collaborator so
// a real model can replace the HTTP client without touching the generator's
// difficulty scaling or templating. Implementations return (nil, nil) when no
// usable signal exists for the user.
type SkillSignalProvider interface {
	GetSkillSignal(userID string) (*models.SkillSignal, error)
}

// SkillServiceClient fetches skill profiles from the analytics service.
type SkillServiceClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewSkillServiceClient(baseURL, token string) *SkillServiceClient {
	return &SkillServiceClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *SkillServiceClient) GetSkillSignal(userID string) (*models.SkillSignal, error) {
	url := fmt.Sprintf("%s/api/v1/skill-profile/%s", c.BaseURL, userID)
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil // no profile yet, caller falls back to the heuristic
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("skill service returned %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("skill service returned %d", resp.StatusCode)
	}

	var out models.SkillSignal
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StaticSkillProvider returns a fixed signal. Used in tests and as a stub when
// no skill service is configured.
type StaticSkillProvider struct {
	Signal *models.SkillSignal
}

func (p *StaticSkillProvider) GetSkillSignal(userID string) (*models.SkillSignal, error) {
	return p.Signal, nil
}
