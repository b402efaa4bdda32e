// workers/telegram_client.go
package workers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// TelegramClient is a minimal Bot API sender used by the reminder worker.
type TelegramClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewTelegramClient(token string) *TelegramClient {
	return &TelegramClient{
		BaseURL: "https://api.telegram.org",
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SendMessage calls the sendMessage method for one chat.
func (c *TelegramClient) SendMessage(chatID int64, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", c.BaseURL, c.Token)

	reqBody := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}
	jsonData, _ := json.Marshal(reqBody)

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	if resp.StatusCode != http.StatusOK {
		log.Printf("Telegram sendMessage returned %d: %s", resp.StatusCode, string(body))
		return fmt.Errorf("telegram sendMessage failed: %d", resp.StatusCode)
	}
	return nil
}
